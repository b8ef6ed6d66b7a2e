package models

// -----------------------------------------------------------------------------
// Stored entries (immutable once appended)
// -----------------------------------------------------------------------------

// MGoldEntry represents one stored gold price update.
type MGoldEntry struct {
	BuyingRate  int64  `json:"buying_rate"`
	SellingRate int64  `json:"selling_rate"`
	Status      string `json:"status"`
	Diff        int64  `json:"diff"`
	CreatedAt   string `json:"created_at"`
}

// MUsdIdrEntry represents one stored USD/IDR quote.
type MUsdIdrEntry struct {
	Price string `json:"price"`
	Time  string `json:"time"`
}

// -----------------------------------------------------------------------------
// Wire structures (built at snapshot time, never stored)
// -----------------------------------------------------------------------------

// MHistoryItem is the display form of a gold entry. All formatted fields are
// derived from the raw entry when the snapshot is built.
type MHistoryItem struct {
	BuyingRate         string `json:"buying_rate"`
	SellingRate        string `json:"selling_rate"`
	BuyingRateRaw      int64  `json:"buying_rate_raw"`
	SellingRateRaw     int64  `json:"selling_rate_raw"`
	WaktuDisplay       string `json:"waktu_display"`
	DiffDisplay        string `json:"diff_display"`
	TransactionDisplay string `json:"transaction_display"`
	CreatedAt          string `json:"created_at"`
	Jt10               string `json:"jt10"`
	Jt20               string `json:"jt20"`
	Jt30               string `json:"jt30"`
	Jt40               string `json:"jt40"`
	Jt50               string `json:"jt50"`
}

// MSnapshotDoc is the full serialized state document.
type MSnapshotDoc struct {
	History       []MHistoryItem `json:"history"`
	UsdIdrHistory []MUsdIdrEntry `json:"usd_idr_history"`
	LimitBulan    int64          `json:"limit_bulan"`
}
