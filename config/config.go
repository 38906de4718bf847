package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration is returned when a required setting is missing.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Calendar CalendarConfig `yaml:"calendar"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
	Roster   RosterConfig   `yaml:"roster"`
}

type BotConfig struct {
	Token         string `yaml:"token"`
	APIEndpoint   string `yaml:"api_endpoint"`
	AdminUserID   int64  `yaml:"admin_user_id"`
	Mode          string `yaml:"mode"` // polling | webhook
	WebhookSecret string `yaml:"webhook_secret"`
	PollTimeout   int    `yaml:"poll_timeout_seconds"`
	Debug         bool   `yaml:"debug"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	AdminToken string `yaml:"admin_token"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // sqlite | postgres
	SQLitePath string `yaml:"sqlite_path"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"ssl_mode"`
	URL        string `yaml:"url"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	GroupID            string   `yaml:"group_id"`
}

type CalendarConfig struct {
	Timezone          string   `yaml:"timezone"`
	WindowDays        int      `yaml:"window_days"`
	WorkingHours      []string `yaml:"working_hours"`
	SlotLengthMinutes int      `yaml:"slot_length_minutes"`
	DisplayCalendar   string   `yaml:"display_calendar"` // jalali | gregorian
}

type BookingConfig struct {
	SlotLockSeconds     int    `yaml:"slot_lock_seconds"`
	SessionTTLMinutes   int    `yaml:"session_ttl_minutes"`
	ProvidersCacheTTL   int    `yaml:"providers_cache_ttl_seconds"`
	InvoiceAmount       int    `yaml:"invoice_amount"`
	InvoiceCurrency     string `yaml:"invoice_currency"`
	InvoiceTitle        string `yaml:"invoice_title"`
	InvoicePriceLabel   string `yaml:"invoice_price_label"`
	SessionStoreBackend string `yaml:"session_store"` // redis | memory
}

type WorkerConfig struct {
	RegenerateIntervalMinutes int `yaml:"regenerate_interval_minutes"`
	DispatcherWorkers         int `yaml:"dispatcher_workers"`
	QueueSize                 int `yaml:"queue_size"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

type RosterConfig struct {
	CSVPath string `yaml:"csv_path"`
}

func (c CalendarConfig) SlotLength() time.Duration {
	return time.Duration(c.SlotLengthMinutes) * time.Minute
}

func (b BookingConfig) SlotLockTTL() time.Duration {
	return time.Duration(b.SlotLockSeconds) * time.Second
}

func (b BookingConfig) SessionTTL() time.Duration {
	return time.Duration(b.SessionTTLMinutes) * time.Minute
}

func (b BookingConfig) ProvidersTTL() time.Duration {
	return time.Duration(b.ProvidersCacheTTL) * time.Second
}

func (w WorkerConfig) RegenerateInterval() time.Duration {
	return time.Duration(w.RegenerateIntervalMinutes) * time.Minute
}

// LoadConfig reads the yaml file at path, applies environment overrides
// (a .env file next to the process is loaded first when present) and fills defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("BALE_TOKEN"); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv("ADMIN_USER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: ADMIN_USER_ID: %v", ErrConfiguration, err)
		}
		c.Bot.AdminUserID = id
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ADMIN_API_TOKEN"); v != "" {
		c.HTTP.AdminToken = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Bot.APIEndpoint == "" {
		c.Bot.APIEndpoint = "https://tapi.bale.ai/bot%s/%s"
	}
	if c.Bot.Mode == "" {
		c.Bot.Mode = "polling"
	}
	if c.Bot.PollTimeout == 0 {
		c.Bot.PollTimeout = 30
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "barbershop.db"
	}
	if c.Kafka.BookingEventsTopic == "" {
		c.Kafka.BookingEventsTopic = "booking-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "barberbooking-worker"
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = "Asia/Tehran"
	}
	if c.Calendar.WindowDays == 0 {
		c.Calendar.WindowDays = 3
	}
	if len(c.Calendar.WorkingHours) == 0 {
		c.Calendar.WorkingHours = []string{"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "16:00", "17:00", "18:00", "19:00", "20:00"}
	}
	if c.Calendar.SlotLengthMinutes == 0 {
		c.Calendar.SlotLengthMinutes = 60
	}
	if c.Calendar.DisplayCalendar == "" {
		c.Calendar.DisplayCalendar = "jalali"
	}
	if c.Booking.SlotLockSeconds == 0 {
		c.Booking.SlotLockSeconds = 30
	}
	if c.Booking.SessionTTLMinutes == 0 {
		c.Booking.SessionTTLMinutes = 24 * 60
	}
	if c.Booking.ProvidersCacheTTL == 0 {
		c.Booking.ProvidersCacheTTL = 300
	}
	if c.Booking.InvoiceAmount == 0 {
		c.Booking.InvoiceAmount = 1800000
	}
	if c.Booking.InvoiceCurrency == "" {
		c.Booking.InvoiceCurrency = "IRR"
	}
	if c.Booking.InvoiceTitle == "" {
		c.Booking.InvoiceTitle = "پرداخت هزینه خدمت"
	}
	if c.Booking.InvoicePriceLabel == "" {
		c.Booking.InvoicePriceLabel = "هزینه خدمت"
	}
	if c.Booking.SessionStoreBackend == "" {
		c.Booking.SessionStoreBackend = "memory"
	}
	if c.Worker.RegenerateIntervalMinutes == 0 {
		c.Worker.RegenerateIntervalMinutes = 60
	}
	if c.Worker.DispatcherWorkers == 0 {
		c.Worker.DispatcherWorkers = 8
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 64
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Roster.CSVPath == "" {
		c.Roster.CSVPath = "barbers.csv"
	}
}

// Validate reports settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("%w: bot token is not set", ErrConfiguration)
	}
	if c.Bot.AdminUserID == 0 {
		return fmt.Errorf("%w: admin user id is not set", ErrConfiguration)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrConfiguration, c.Database.Driver)
	}
	if c.Bot.Mode == "webhook" && c.Bot.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook mode requires webhook_secret", ErrConfiguration)
	}
	return nil
}
