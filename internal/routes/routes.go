package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roktolink/roktolink-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Get("/api/auth/me", handlers.Me)

	// Donor routes (directory reads are public, profile writes are owner-only)
	r.Get("/api/donors", handlers.DonorDirectory)
	r.Get("/api/donors/profile", handlers.GetDonorProfile)
	r.Get("/api/donors/me", handlers.GetMyDonorProfile)
	r.Post("/api/donors", handlers.CreateDonor)
	r.Put("/api/donors", handlers.UpdateDonor)
	r.Delete("/api/donors", handlers.DeleteDonor)

	// Institution routes (reads public, writes admin)
	r.Get("/api/institutions", handlers.ListInstitutions)
	r.Post("/api/institutions", handlers.CreateInstitution)
	r.Put("/api/institutions", handlers.UpdateInstitution)
	r.Delete("/api/institutions", handlers.DeleteInstitution)

	// Donation routes (recording is admin-only, the sole counter mutator)
	r.Post("/api/donations", handlers.RecordDonation)
	r.Get("/api/donations", handlers.ListDonations)

	// Blood request routes
	r.Post("/api/requests", handlers.CreateRequest)
	r.Get("/api/requests", handlers.ListRequests)
	r.Get("/api/requests/mine", handlers.MyRequests)
	r.Get("/api/requests/matches", handlers.RequestMatches)
	r.Put("/api/requests/status", handlers.UpdateRequestStatus)
	r.Delete("/api/requests", handlers.DeleteRequest)

	// Direct donor contact (consent-gated, one call opens and sends)
	r.Post("/api/contact", handlers.ContactDonor)

	// Chat routes (poll-based: MongoDB history + Redis recent cache)
	r.Post("/api/chats/open", handlers.OpenChat)
	r.Get("/api/chats", handlers.ChatInbox)
	r.Get("/api/chats/messages", handlers.ChatMessages)
	r.Post("/api/chats/send", handlers.SendChatMessage)
	r.Put("/api/chats/pause", handlers.PauseChat)
	r.Put("/api/chats/resume", handlers.ResumeChat)

	// Notification routes
	r.Get("/api/notifications", handlers.ListNotifications)
	r.Put("/api/notifications/read", handlers.MarkNotificationsRead)
	r.Get("/api/notifications/unread-count", handlers.UnreadNotificationCount)

	// Admin routes
	r.Get("/api/admin/users", handlers.ListUsers)
	r.Put("/api/admin/users/active", handlers.SetUserActive)
	r.Delete("/api/admin/users", handlers.DeleteUser)
	r.Put("/api/admin/donors/defer", handlers.DeferDonor)
	r.Get("/api/admin/stats", handlers.RegistryStats)
	r.Get("/api/admin/audit-logs", handlers.AuditLogs)
	r.Put("/api/admin/unblock-ip", handlers.UnblockIP)
	r.Get("/api/admin/export/donors.csv", handlers.ExportDonorsCSV)
	r.Get("/api/admin/export/donations.csv", handlers.ExportDonationsCSV)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())
}
