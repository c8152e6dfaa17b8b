package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/roktolink/roktolink-backend/internal/services"
)

// ExportDonorsCSV streams the live donor roster as CSV. Admin only; the
// export carries contact fields but never notes or emergency contacts.
func ExportDonorsCSV(w http.ResponseWriter, r *http.Request) {
	_, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="donors.csv"`)

	if err := services.WriteDonorsCSV(ctx, w); err != nil {
		// Headers are gone; all we can do is log the broken stream.
		log.Warn().Err(err).Msg("donor CSV export aborted")
	}
}

// ExportDonationsCSV streams the full donation ledger as CSV. Admin only.
func ExportDonationsCSV(w http.ResponseWriter, r *http.Request) {
	_, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="donations.csv"`)

	if err := services.WriteDonationsCSV(ctx, w); err != nil {
		log.Warn().Err(err).Msg("donation CSV export aborted")
	}
}
