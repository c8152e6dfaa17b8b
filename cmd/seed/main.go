package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/roktolink/roktolink-backend/internal/config"
	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
	"github.com/roktolink/roktolink-backend/pkg/utils"
)

// Seeds the registry: creates the admin account (idempotent) and, with
// -demo, a handful of institutions and donors for development.
func main() {
	var (
		adminEmail    = flag.String("email", "admin@roktolink.org", "admin account email")
		adminPassword = flag.String("password", "", "admin account password (required on first run)")
		adminName     = flag.String("name", "Registry Admin", "admin display name")
		demo          = flag.Bool("demo", false, "also create demo institutions and donors")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := services.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to ensure indexes:", err)
	}
	log.Println("✅ MongoDB indexes ensured")

	if err := seedAdmin(ctx, *adminEmail, *adminPassword, *adminName); err != nil {
		log.Fatal("Failed to seed admin:", err)
	}

	if *demo {
		if err := seedDemo(ctx); err != nil {
			log.Fatal("Failed to seed demo data:", err)
		}
	}

	log.Println("✅ Seeding complete")
}

func seedAdmin(ctx context.Context, email, password, name string) error {
	users := database.DB.Collection("users")

	var existing models.User
	err := users.FindOne(ctx, bson.M{"email": email}).Decode(&existing)
	if err == nil {
		// Account exists: only make sure it is an active admin.
		_, err = users.UpdateOne(ctx, bson.M{"_id": existing.ID},
			bson.M{"$set": bson.M{"role": models.RoleAdmin, "is_active": true, "updated_at": time.Now()}})
		if err != nil {
			return err
		}
		log.Printf("✅ Admin account already exists: %s", email)
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return err
	}

	if password == "" {
		log.Fatal("-password is required when the admin account does not exist yet")
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = users.InsertOne(ctx, &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Admin account created: %s", email)
	return nil
}

type demoDonor struct {
	name       string
	email      string
	bloodGroup string
	city       string
	visibility string
	phone      string
}

func seedDemo(ctx context.Context) error {
	now := time.Now()

	institutions := []models.Institution{
		{Name: "Dhaka Central Blood Bank", Type: models.InstitutionBloodBank,
			Address: models.Address{Country: "Bangladesh", Division: "Dhaka", City: "Dhaka"}},
		{Name: "Chattogram General Hospital", Type: models.InstitutionHospital,
			Address: models.Address{Country: "Bangladesh", Division: "Chattogram", City: "Chattogram"}},
		{Name: "Red Crescent Sylhet", Type: models.InstitutionNGO,
			Address: models.Address{Country: "Bangladesh", Division: "Sylhet", City: "Sylhet"}},
	}
	for i := range institutions {
		institutions[i].CreatedAt = now
		institutions[i].UpdatedAt = now
		_, err := database.DB.Collection("institutions").InsertOne(ctx, &institutions[i])
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
	}
	log.Printf("✅ Demo institutions ready (%d)", len(institutions))

	donors := []demoDonor{
		{"Arif Hossain", "arif@example.com", "O-", "Dhaka", models.VisibilityPublic, "+8801711000001"},
		{"Nusrat Jahan", "nusrat@example.com", "A+", "Dhaka", models.VisibilityRegistered, "+8801711000002"},
		{"Kamal Uddin", "kamal@example.com", "B+", "Chattogram", models.VisibilityPublic, "+8801711000003"},
		{"Sadia Islam", "sadia@example.com", "AB-", "Sylhet", models.VisibilityRegistered, "+8801711000004"},
		{"Rahim Khan", "rahim@example.com", "O+", "Khulna", models.VisibilityPublic, "+8801711000005"},
	}

	hash, err := utils.HashPassword("demo-password-1234")
	if err != nil {
		return err
	}

	created := 0
	for _, d := range donors {
		user := models.User{
			CreatedAt:    now,
			UpdatedAt:    now,
			Name:         d.name,
			Email:        d.email,
			Phone:        d.phone,
			PasswordHash: hash,
			Role:         models.RoleUser,
			IsActive:     true,
		}
		res, err := database.DB.Collection("users").InsertOne(ctx, &user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}

		donor := models.Donor{
			UserID:              res.InsertedID.(primitive.ObjectID),
			CreatedAt:           now,
			UpdatedAt:           now,
			FullName:            d.name,
			Email:               d.email,
			Phone:               d.phone,
			BloodGroup:          d.bloodGroup,
			WillingToDonate:     true,
			Visibility:          d.visibility,
			PhoneVisibility:     d.visibility,
			AllowRequestContact: true,
			Address:             models.Address{Country: "Bangladesh", City: d.city},
		}
		if _, err := database.DB.Collection("donors").InsertOne(ctx, &donor); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		created++
	}
	log.Printf("✅ Demo donors ready (%d new)", created)
	return nil
}
