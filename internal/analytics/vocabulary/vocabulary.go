// Package vocabulary holds the closed value sets of the transaction dataset.
// Slice order is canonical: scans and compare-sets follow it.
package vocabulary

import "insightx-workers/internal/models"

var (
	States = []string{
		"Andhra Pradesh", "Delhi", "Gujarat", "Karnataka", "Maharashtra",
		"Rajasthan", "Tamil Nadu", "Telangana", "Uttar Pradesh", "West Bengal",
	}
	Banks      = []string{"Axis", "HDFC", "ICICI", "IndusInd", "Kotak", "PNB", "SBI", "Yes Bank"}
	Categories = []string{
		"Education", "Entertainment", "Food", "Fuel", "Grocery",
		"Healthcare", "Other", "Shopping", "Transport", "Utilities",
	}
	AgeGroups        = []string{"18-25", "26-35", "36-45", "46-55", "56+"}
	Devices          = []string{"Android", "iOS", "Web"}
	Networks         = []string{"3G", "4G", "5G", "WiFi"}
	TransactionTypes = []string{"P2P", "P2M", "Bill Payment", "Recharge"}
	Weekdays         = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
)

// For returns the closed vocabulary of a dimension, or nil for open ones.
func For(d models.Dimension) []string {
	switch d {
	case models.DimSenderState:
		return States
	case models.DimSenderBank:
		return Banks
	case models.DimMerchantCategory:
		return Categories
	case models.DimSenderAgeGroup:
		return AgeGroups
	case models.DimDeviceType:
		return Devices
	case models.DimNetworkType:
		return Networks
	case models.DimTransactionType:
		return TransactionTypes
	case models.DimDayOfWeek:
		return Weekdays
	}
	return nil
}

// WeekdayIndex returns the Monday-first ordinal of a day name, or -1.
func WeekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}
