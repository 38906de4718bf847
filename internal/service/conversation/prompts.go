package conversation

import "github.com/Domenick1991/barberbooking/internal/domain"

// Тексты бота
const (
	promptChooseService       = "لطفا نوع خدمت را انتخاب کنید:"
	promptChooseProvider      = "لطفا آرایشگر مورد نظر خود را انتخاب کنید:"
	promptNoProviders         = "هیچ آرایشگری ثبت نشده است."
	promptProviderNotFound    = "آرایشگر انتخاب‌شده یافت نشد. لطفا دوباره انتخاب کنید."
	promptChooseListing       = "لطفا یکی از گزینه‌های زیر را انتخاب کنید:"
	promptChooseProviderFirst = "⚠️ لطفا ابتدا نوع خدمت و آرایشگر را انتخاب کنید."
	promptNoSlots             = "نوبت خالی یافت نشد."
	promptNoPairs             = "نوبت خالی متوالی برای خدمات VIP یافت نشد."
	promptTableHeader         = "جدول نوبت‌های خالی:"
	promptPairTableHeader     = "جدول نوبت‌های خالی متوالی (خدمات VIP):"
	promptEnterSlotIndex      = "لطفا شماره ردیف نوبت مدنظر خود را وارد کنید:"
	promptNotANumber          = "لطفا یک عدد وارد کنید."
	promptIndexOutOfRange     = "شماره ردیف نامعتبر است. لطفا دوباره وارد کنید."
	promptFirstOffer          = "📅 اولین نوبت خالی: %s ساعت %s. آیا تایید می‌کنید؟"
	promptEnterName           = "لطفا نام خود را وارد کنید:"
	promptEnterPhone          = "📞 لطفا شماره تماس خود را وارد کنید:"
	promptInvalidPhone        = "شماره تماس نامعتبر است. شماره باید ۱۱ رقم باشد و با 09 شروع شود."
	promptSessionExpired      = "⚠️ اطلاعات نوبت شما منقضی شده است. لطفا دوباره شروع کنید."
	promptSlotTaken           = "⚠️ این نوبت همین حالا رزرو شد. لطفا نوبت دیگری انتخاب کنید."
	promptTryAgain            = "⚠️ خطایی رخ داد. لطفا دوباره تلاش کنید."
	promptRetryHint           = "برای تلاش مجدد هر پیامی ارسال کنید."
	promptBooked              = "✅ نوبت شما برای %s ساعت %s ثبت شد.\n💈 لطفا روش پرداخت را انتخاب کنید:"
	promptHasBooking          = "شما قبلاً نوبت گرفته‌اید. نوبت شما برای %s ساعت %s است."
	promptActiveExists        = "شما یک نوبت فعال دارید. برای گرفتن نوبت جدید ابتدا نوبت فعلی را لغو کنید."
	promptNoBookings          = "شما هیچ نوبتی ندارید."
	promptBookingListHeader   = "📅 نوبت شما:"
	promptBookingEntry        = "🕒 %s ساعت %s\n✂️ خدمت: %s\n💈 آرایشگر: %s\n💳 وضعیت پرداخت: %s"
	promptCancelled           = "نوبت شما با موفقیت لغو شد."
	promptNothingToCancel     = "شما هیچ نوبتی برای لغو ندارید."
	promptPayViaInvoice       = "لطفا پرداخت را از طریق فاکتور ارسال‌شده انجام دهید."
	promptProviderInfoMissing = "خطا در دریافت اطلاعات پرداخت آرایشگر."
	promptBackToMain          = "به صفحه اصلی بازگشتید:"
	promptPaymentReceived     = "✅ پرداخت شما با موفقیت ثبت شد. کد پیگیری: %s"
	promptPaymentUnknown      = "پرداخت دریافت شد اما نوبت مربوط به آن یافت نشد."
	invoiceDescription        = "%s - %s ساعت %s"

	promptAdminMenu      = "لطفا نوع نوبت‌ها را انتخاب کنید:"
	promptAdminEmpty     = "لیست نوبت‌های خالی:"
	promptAdminNoEmpty   = "هیچ نوبت خالی وجود ندارد."
	promptAdminBooked    = "لیست نوبت‌های رزرو شده:"
	promptAdminNoBooked  = "هیچ نوبت رزرو شده‌ای وجود ندارد."
	adminEmptyLine       = "%s ساعت %s - آرایشگر: %s"
	adminBookedLine      = "%s ساعت %s - %s (%s) - %s - %s - آرایشگر: %s"
	promptRosterUpdated  = "اطلاعات آرایشگرها با موفقیت بروزرسانی شد."
	promptRosterFailed   = "خطا در بروزرسانی اطلاعات آرایشگرها."
	promptRosterSummary  = "آرایشگر جدید: %d، بروزرسانی‌شده: %d"
	labelPaid            = "پرداخت شده"
	labelUnpaid          = "پرداخت نشده"
	labelUnknownProvider = "-"
)

const (
	btnHome         = "بازگشت به صفحه اصلی"
	btnHaircut      = "اصلاح"
	btnVIP          = "خدمات VIP"
	btnFirst        = "📅 اولین نوبت خالی"
	btnTable        = "📋 مشاهده جدول نوبت‌ها"
	btnConfirm      = "✅ تایید"
	btnPayOnline    = "💳 پرداخت آنلاین"
	btnPayInPerson  = "💵 پرداخت حضوری"
	btnShowMine     = "مشاهده نوبت من"
	btnCancel       = "لغو نوبت"
	btnNew          = "نوبت جدید"
	btnAdminEmpty   = "نمایش نوبت‌های خالی"
	btnAdminBooked  = "نمایش نوبت‌های رزرو شده"
	btnAdminRoster  = "بروزرسانی آرایشگرها"
)

var dayLabels = []string{"امروز", "فردا", "پس‌فردا"}

func serviceLabel(s domain.ServiceKind) string {
	if s == domain.ServiceVIP {
		return btnVIP
	}
	return btnHaircut
}

func providerLabel(p domain.Provider) string {
	if p.Address == "" {
		return p.Name
	}
	return p.Name + " - " + p.Address
}

func paymentLabel(p domain.PaymentStatus) string {
	if p == domain.PaymentStatusPaid {
		return labelPaid
	}
	return labelUnpaid
}

func row(buttons ...domain.Button) []domain.Button {
	return buttons
}

func serviceMenu() [][]domain.Button {
	return [][]domain.Button{
		row(domain.Button{Text: btnHaircut, Event: domain.ServiceSelected{Service: domain.ServiceHaircut}}),
		row(domain.Button{Text: btnVIP, Event: domain.ServiceSelected{Service: domain.ServiceVIP}}),
	}
}

func bookingMenu(withNew bool) [][]domain.Button {
	rows := [][]domain.Button{
		row(domain.Button{Text: btnShowMine, Event: domain.ShowBookingRequested{}}),
		row(domain.Button{Text: btnCancel, Event: domain.CancelRequested{}}),
	}
	if withNew {
		rows = append(rows, row(domain.Button{Text: btnNew, Event: domain.NewBookingRequested{}}))
	}
	return rows
}

func listingMenu() [][]domain.Button {
	return [][]domain.Button{
		row(domain.Button{Text: btnFirst, Event: domain.FirstAvailableRequested{}}),
		row(domain.Button{Text: btnTable, Event: domain.ShowTableRequested{}}),
	}
}

func paymentMenu() [][]domain.Button {
	return [][]domain.Button{
		row(domain.Button{Text: btnPayOnline, Event: domain.PaymentMethodChosen{Method: domain.PaymentOnline}}),
		row(domain.Button{Text: btnPayInPerson, Event: domain.PaymentMethodChosen{Method: domain.PaymentInPerson}}),
	}
}

func adminMenu() [][]domain.Button {
	return [][]domain.Button{
		row(domain.Button{Text: btnAdminEmpty, Event: domain.AdminListEmpty{}}),
		row(domain.Button{Text: btnAdminBooked, Event: domain.AdminListBooked{}}),
		row(domain.Button{Text: btnAdminRoster, Event: domain.RosterReloadRequested{}}),
	}
}

func homeRow() []domain.Button {
	return row(domain.Button{Text: btnHome, Event: domain.StartRequested{}})
}
