package notifications

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatBaht(t *testing.T) {
	require.Equal(t, "฿1,234.50", FormatBaht(decimal.RequireFromString("1234.5")))
	require.Equal(t, "฿0.00", FormatBaht(decimal.Zero))
	require.Equal(t, "฿1,000,000.00", FormatBaht(decimal.NewFromInt(1000000)))
}

func TestStatusLabelFallback(t *testing.T) {
	require.Equal(t, "พร้อมรับสินค้า", StatusLabel("ready"))
	require.Equal(t, "mystery", StatusLabel("mystery"))
}

func TestPaymentReceivedMessage(t *testing.T) {
	withBalance := PaymentReceivedMessage("Banner", decimal.NewFromInt(100), decimal.NewFromInt(200))
	require.Contains(t, withBalance, "฿100.00")
	require.Contains(t, withBalance, "฿200.00")

	settled := PaymentReceivedMessage("Banner", decimal.NewFromInt(300), decimal.Zero)
	require.Contains(t, settled, "ครบถ้วน")
	require.False(t, strings.Contains(settled, "คงเหลือ"))
}

func TestStatusChangeMessageIncludesTrackingURL(t *testing.T) {
	msg := StatusChangeMessage("Banner", "printing", "https://shop.example/track/abc")
	require.Contains(t, msg, "https://shop.example/track/abc")
	require.Contains(t, msg, "กำลังพิมพ์")
}
