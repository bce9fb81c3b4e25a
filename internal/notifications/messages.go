package notifications

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var thaiPrinter = message.NewPrinter(language.Thai)

// FormatBaht renders an amount in Thai baht with thousand separators, the
// way customers expect to read prices.
func FormatBaht(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return thaiPrinter.Sprintf("฿%v", number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Customer-facing Thai labels per job status.
var statusLabels = map[string]string{
	"pending":           "รอดำเนินการ",
	"designing":         "กำลังออกแบบ",
	"awaiting_approval": "รอลูกค้าอนุมัติแบบ",
	"revision":          "กำลังแก้ไขแบบ",
	"approved":          "แบบอนุมัติแล้ว",
	"printing":          "กำลังพิมพ์",
	"cutting":           "กำลังตัด",
	"laminating":        "กำลังเคลือบ",
	"ready":             "พร้อมรับสินค้า",
	"completed":         "ส่งมอบแล้ว",
	"cancelled":         "ยกเลิก",
	"on_hold":           "พักงานชั่วคราว",
}

// StatusLabel returns the Thai label for a status, falling back to the raw
// status key.
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// StatusChangeMessage is the push sent to the customer on a job status move.
func StatusChangeMessage(title, status, trackingURL string) string {
	return fmt.Sprintf("งาน \"%s\" อัปเดตสถานะ: %s\nติดตามงาน: %s", title, StatusLabel(status), trackingURL)
}

// ProofReadyMessage asks the customer to review and approve the design.
func ProofReadyMessage(title, trackingURL string) string {
	return fmt.Sprintf("แบบงาน \"%s\" พร้อมให้ตรวจแล้ว กรุณาอนุมัติหรือขอแก้ไขได้ที่: %s", title, trackingURL)
}

// PaymentReceivedMessage confirms a payment and states the remaining balance.
func PaymentReceivedMessage(title string, amount, balance decimal.Decimal) string {
	if balance.IsPositive() {
		return fmt.Sprintf("ได้รับชำระเงิน %s สำหรับงาน \"%s\" ยอดคงเหลือ %s ขอบคุณค่ะ",
			FormatBaht(amount), title, FormatBaht(balance))
	}
	return fmt.Sprintf("ได้รับชำระเงิน %s สำหรับงาน \"%s\" ครบถ้วนแล้ว ขอบคุณค่ะ", FormatBaht(amount), title)
}

// PaymentReminderMessage nags an outstanding balance.
func PaymentReminderMessage(title string, balance decimal.Decimal, trackingURL string) string {
	return fmt.Sprintf("แจ้งเตือน: งาน \"%s\" มียอดค้างชำระ %s\nรายละเอียด: %s", title, FormatBaht(balance), trackingURL)
}

// ApprovalReminderMessage nags an unanswered proof.
func ApprovalReminderMessage(title, trackingURL string) string {
	return fmt.Sprintf("แจ้งเตือน: แบบงาน \"%s\" ยังรอการอนุมัติจากท่าน กรุณาตรวจแบบที่: %s", title, trackingURL)
}
