package main

import (
	"log"
	"os"
	"regform-api/config"
	"regform-api/internal/invitation"
	"regform-api/internal/logs"
	"regform-api/internal/lookup"
	"regform-api/internal/regform"
	"regform-api/internal/registration"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	dsn := "host=" + cfg.DBHost +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" port=" + cfg.DBPort +
		" sslmode=disable"

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&regform.Form{}, &regform.Section{}, &regform.Field{},
		&registration.Registration{}, &registration.RegistrationItem{},
		&registration.Upload{}, &registration.User{},
		&invitation.Invitation{},
		&lookup.Country{},
		&logs.SystemLog{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.BaseURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	logService := &logs.LogService{DB: db}
	logs.RegisterRoutes(r, logService)

	regFormService := &regform.RegFormService{DB: db, Logs: logService}
	regform.RegisterRoutes(r, regFormService)

	invitationService := &invitation.InvitationService{DB: db, CFG: &cfg, Logs: logService}
	invitation.RegisterRoutes(r, invitationService)

	registrationService := &registration.RegistrationService{
		DB:          db,
		Logs:        logService,
		Invitations: invitationService,
		Bucket:      cfg.GCSBucket,
	}
	registration.RegisterRoutes(r, registrationService)

	lookupService := lookup.NewLookupService(db)
	if err := lookupService.SeedCountries(); err != nil {
		log.Fatal("Failed to seed countries:", err)
	}
	lookup.RegisterRoutes(r, lookupService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on 0.0.0.0:%s ...", port)
	log.Fatal(r.Run("0.0.0.0:" + port))
}
