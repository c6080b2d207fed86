// Package datasettest builds deterministic transaction datasets for tests.
package datasettest

import (
	"fmt"
	"time"

	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"
)

// FixtureSize is the number of rows in the standard fixture.
const FixtureSize = 10000

var (
	fixtureStates     = []string{"Maharashtra", "Karnataka", "Delhi", "Gujarat", "Tamil Nadu"}
	fixtureBanks      = []string{"SBI", "HDFC", "ICICI", "Axis"}
	fixtureCategories = []string{"Grocery", "Food", "Shopping", "Education", "Entertainment", "Fuel", "Utilities"}
	fixtureAgeGroups  = []string{"18-25", "26-35", "36-45", "46-55", "56+"}
	fixtureDevices    = []string{"Android", "iOS", "Web"}
	fixtureNetworks   = []string{"3G", "4G", "5G", "WiFi"}
	fixtureTypes      = []string{"P2P", "P2M", "Bill Payment", "Recharge"}

	fixtureStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Transactions returns the standard fixture rows. Properties tests rely on:
//   - exactly 19 rows are fraudulent, so the overall fraud rate is 0.19%;
//   - three devices, four networks, four banks, five states;
//   - no iOS transaction originates in Gujarat;
//   - 3G fails more often than the other networks.
func Transactions() []models.Transaction {
	rows := make([]models.Transaction, FixtureSize)
	for i := range rows {
		ts := fixtureStart.Add(time.Duration(i*53) * time.Minute)
		device := fixtureDevices[i%3]
		state := fixtureStates[(i/3)%len(fixtureStates)]
		if device == "iOS" && state == "Gujarat" {
			state = "Delhi"
		}
		network := fixtureNetworks[i%4]

		status := "SUCCESS"
		if i%19 == 0 || (network == "3G" && i%9 == 1) {
			status = models.TransactionStatusFailed
		}

		rows[i] = models.Transaction{
			ID:               txnID(i),
			Timestamp:        ts,
			Type:             fixtureTypes[(i/13)%len(fixtureTypes)],
			Amount:           float64(100 + (i*37)%5000),
			MerchantCategory: fixtureCategories[i%len(fixtureCategories)],
			Status:           status,
			SenderAgeGroup:   fixtureAgeGroups[(i/11)%len(fixtureAgeGroups)],
			ReceiverAgeGroup: fixtureAgeGroups[(i/17)%len(fixtureAgeGroups)],
			SenderState:      state,
			SenderBank:       fixtureBanks[(i/7)%len(fixtureBanks)],
			ReceiverBank:     fixtureBanks[(i/5)%len(fixtureBanks)],
			DeviceType:       device,
			NetworkType:      network,
			DayOfWeek:        ts.Weekday().String(),
			HourOfDay:        ts.Hour(),
			IsWeekend:        ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday,
			FraudFlag:        i < 9500 && i%500 == 7,
		}
	}
	return rows
}

// Fixture wraps Transactions in a Dataset with every source column present.
func Fixture() *dataset.Dataset {
	return dataset.New(Transactions(), nil)
}

// Grouped builds a dataset whose only varying column is merchant_category,
// with n rows per category and the given amount for each category. Categories
// outside the fixture's category list are ignored.
func Grouped(amounts map[string]float64, n int) *dataset.Dataset {
	var rows []models.Transaction
	i := 0
	for _, cat := range fixtureCategoriesSorted(amounts) {
		for j := 0; j < n; j++ {
			ts := fixtureStart.Add(time.Duration(i) * time.Hour)
			rows = append(rows, models.Transaction{
				ID:               txnID(i),
				Timestamp:        ts,
				Type:             "P2M",
				Amount:           amounts[cat],
				MerchantCategory: cat,
				Status:           "SUCCESS",
				SenderState:      "Delhi",
				SenderBank:       "SBI",
				DeviceType:       "Android",
				NetworkType:      "4G",
				DayOfWeek:        ts.Weekday().String(),
				HourOfDay:        ts.Hour(),
			})
			i++
		}
	}
	return dataset.New(rows, nil)
}

func fixtureCategoriesSorted(amounts map[string]float64) []string {
	out := make([]string, 0, len(amounts))
	for _, c := range fixtureCategories {
		if _, ok := amounts[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func txnID(i int) string {
	return fmt.Sprintf("TXN%06d", i)
}
