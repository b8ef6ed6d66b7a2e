package state

import (
	"encoding/json"

	"gold-monitor/src/models"
	"gold-monitor/src/utils"
)

// -----------------------------------------------------------------------------
// Snapshot builder. Display fields are derived here from the raw stored
// values, never at storage time, so stored entries stay canonical and a
// format change only touches this file.
// -----------------------------------------------------------------------------

// Capital tiers for the profit columns: invested amount and its principal
// after purchase fees.
var profitTiers = []struct {
	Modal int64
	Pokok int64
}{
	{10_000_000, 9_669_000},
	{20_000_000, 19_330_000},
	{30_000_000, 28_995_000},
	{40_000_000, 38_660_000},
	{50_000_000, 48_325_000},
}

// -----------------------------------------------------------------------------

// buildSnapshot serializes the full state document under read locks.
func (s *AppState) buildSnapshot() []byte {
	s.mu.RLock()
	entries := s.history.Items()
	usd := s.usdHistory.Items()
	s.mu.RUnlock()
	limit := s.limitBulan.Load()

	doc := models.MSnapshotDoc{
		History:       make([]models.MHistoryItem, len(entries)),
		UsdIdrHistory: usd,
		LimitBulan:    limit,
	}
	for i, e := range entries {
		doc.History[i] = buildHistoryItem(e)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		// Cannot happen for these types; keep the previous buffer alive.
		s.Logger.Error("Failed to serialize snapshot: %v", err)
		return s.cache.Load().Data
	}
	return data
}

// -----------------------------------------------------------------------------

func buildHistoryItem(e models.MGoldEntry) models.MHistoryItem {
	buyFmt := utils.FormatRupiah(e.BuyingRate)
	sellFmt := utils.FormatRupiah(e.SellingRate)
	diffDisplay := utils.FormatDiffDisplay(e.Diff, e.Status)

	item := models.MHistoryItem{
		BuyingRate:         buyFmt,
		SellingRate:        sellFmt,
		BuyingRateRaw:      e.BuyingRate,
		SellingRateRaw:     e.SellingRate,
		WaktuDisplay:       utils.FormatWaktuOnly(e.CreatedAt, e.Status),
		DiffDisplay:        diffDisplay,
		TransactionDisplay: "Beli: " + buyFmt + "<br>Jual: " + sellFmt + "<br>" + diffDisplay,
		CreatedAt:          e.CreatedAt,
	}

	item.Jt10 = utils.CalcProfit(e.BuyingRate, e.SellingRate, profitTiers[0].Modal, profitTiers[0].Pokok)
	item.Jt20 = utils.CalcProfit(e.BuyingRate, e.SellingRate, profitTiers[1].Modal, profitTiers[1].Pokok)
	item.Jt30 = utils.CalcProfit(e.BuyingRate, e.SellingRate, profitTiers[2].Modal, profitTiers[2].Pokok)
	item.Jt40 = utils.CalcProfit(e.BuyingRate, e.SellingRate, profitTiers[3].Modal, profitTiers[3].Pokok)
	item.Jt50 = utils.CalcProfit(e.BuyingRate, e.SellingRate, profitTiers[4].Modal, profitTiers[4].Pokok)

	return item
}
