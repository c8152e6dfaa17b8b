package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
)

const csvDateLayout = "2006-01-02"

// DonorCSVHeader is the column order for donor exports.
var DonorCSVHeader = []string{
	"id", "full_name", "blood_group", "willing_to_donate",
	"eligible", "days_until_eligible",
	"phone", "email", "city", "division", "country",
	"total_donations", "last_donation_date",
	"deferral_until", "created_at",
}

// DonorCSVRow renders one donor for the admin export. Medical notes and
// emergency contacts never leave the database this way.
func DonorCSVRow(d *models.Donor, now time.Time) []string {
	elig := EvaluateEligibility(d, now)

	days := ""
	if elig.DaysUntilEligible != nil {
		days = strconv.Itoa(*elig.DaysUntilEligible)
	}
	lastDonation := ""
	if d.LastDonationDate != nil {
		lastDonation = d.LastDonationDate.Format(csvDateLayout)
	}
	deferral := ""
	if d.DeferralUntil != nil {
		deferral = d.DeferralUntil.Format(csvDateLayout)
	}

	return []string{
		d.ID.Hex(),
		d.FullName,
		d.BloodGroup,
		strconv.FormatBool(d.WillingToDonate),
		strconv.FormatBool(elig.Eligible),
		days,
		d.Phone,
		d.Email,
		d.Address.City,
		d.Address.Division,
		d.Address.Country,
		strconv.Itoa(d.TotalDonations),
		lastDonation,
		deferral,
		d.CreatedAt.Format(csvDateLayout),
	}
}

// WriteDonorsCSV streams every live donor to w.
func WriteDonorsCSV(ctx context.Context, w io.Writer) error {
	cursor, err := database.DB.Collection("donors").Find(ctx,
		bson.M{"deleted": false},
		options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	cw := csv.NewWriter(w)
	if err := cw.Write(DonorCSVHeader); err != nil {
		return err
	}

	now := time.Now()
	for cursor.Next(ctx) {
		var d models.Donor
		if err := cursor.Decode(&d); err != nil {
			continue
		}
		if err := cw.Write(DonorCSVRow(&d, now)); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// DonationCSVHeader is the column order for donation exports.
var DonationCSVHeader = []string{
	"id", "donor_id", "institution_id", "recorded_by",
	"donation_date", "units", "created_at",
}

// DonationCSVRow renders one donation record.
func DonationCSVRow(d *models.Donation) []string {
	institution := ""
	if d.InstitutionID != nil {
		institution = d.InstitutionID.Hex()
	}
	return []string{
		d.ID.Hex(),
		d.DonorID.Hex(),
		institution,
		d.RecordedBy.Hex(),
		d.DonationDate.Format(csvDateLayout),
		strconv.Itoa(d.Units),
		d.CreatedAt.Format(csvDateLayout),
	}
}

// WriteDonationsCSV streams the full donation ledger to w.
func WriteDonationsCSV(ctx context.Context, w io.Writer) error {
	cursor, err := database.DB.Collection("donations").Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"donation_date": 1}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	cw := csv.NewWriter(w)
	if err := cw.Write(DonationCSVHeader); err != nil {
		return err
	}

	for cursor.Next(ctx) {
		var d models.Donation
		if err := cursor.Decode(&d); err != nil {
			continue
		}
		if err := cw.Write(DonationCSVRow(&d)); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}
