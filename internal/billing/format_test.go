package billing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatRupiah(t *testing.T) {
	require.Equal(t, "Rp 45.000", FormatRupiah(dec("45000")))
	require.Equal(t, "Rp 1.234.567", FormatRupiah(dec("1234567.00")))
	require.Equal(t, "Rp 0", FormatRupiah(dec("0")))
	require.Equal(t, "Rp 60,50", FormatRupiah(dec("60.5")))
	require.Equal(t, "Rp -1.500", FormatRupiah(dec("-1500")))
}
