package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hidrotek/water-dispenser-system/internal/cloud"
	"github.com/hidrotek/water-dispenser-system/internal/config"
	"github.com/hidrotek/water-dispenser-system/internal/database"
	httpHandlers "github.com/hidrotek/water-dispenser-system/internal/http"
	"github.com/hidrotek/water-dispenser-system/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}

	opts := service.Options{
		Calibration: config.PulsesPerLiter(),
		PumpDefaults: service.PumpDefaults{
			MaxLevel:         config.PumpMaxLevel(),
			ThresholdWarning: config.PumpThresholdWarning(),
			ThresholdStop:    config.PumpThresholdStop(),
		},
	}

	if config.UseCloudServices() {
		snsClient, err := cloud.NewSNSClient(config.AWSRegion(), config.SNSTopicArn())
		if err != nil {
			log.Fatal().Err(err).Msg("sns client init failed")
		}
		tokens, err := cloud.NewDynamoDBClient(config.AWSRegion(), config.TokensTable())
		if err != nil {
			log.Fatal().Err(err).Msg("dynamodb client init failed")
		}
		archiver, err := cloud.NewS3Client(config.AWSRegion(), config.S3Bucket())
		if err != nil {
			log.Fatal().Err(err).Msg("s3 client init failed")
		}
		opts.Notifier = cloud.NewSNSNotifier(snsClient, tokens)
		opts.Tokens = tokens
		opts.Archiver = archiver
	}

	svcs := service.New(db, opts)
	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	httpHandlers.Register(app, svcs)

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Bool("cloud", config.UseCloudServices()).Msg("api listening")
	log.Fatal().Err(app.Listen(addr)).Msg("server exit")
}
