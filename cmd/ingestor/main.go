package main

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/hidrotek/water-dispenser-system/internal/config"
	"github.com/hidrotek/water-dispenser-system/internal/database"
	"github.com/hidrotek/water-dispenser-system/internal/service"
)

type sensorPayload struct {
	DeviceID    string   `json:"device_id"`
	Timestamp   string   `json:"timestamp"`
	FlowRate    float64  `json:"flow_rate"`
	PulseCount  *int64   `json:"pulse_count"`
	TotalVolume *float64 `json:"total_volume"`
	Unit        string   `json:"unit"`
	Temperature *float64 `json:"temperature"`
	Pressure    *float64 `json:"pressure"`
}

func main() {
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

	svcs := service.New(db, service.Options{Calibration: config.PulsesPerLiter()})

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var p sensorPayload
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("bad payload")
			return
		}
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			// Firmware without NTP sends garbage timestamps; fall back
			// to arrival time.
			ts = time.Time{}
		}
		rd, err := svcs.Readings.Record(service.RecordReadingInput{
			DeviceID:    p.DeviceID,
			FlowRate:    p.FlowRate,
			TotalVolume: p.TotalVolume,
			PulseCount:  p.PulseCount,
			Unit:        p.Unit,
			Temperature: p.Temperature,
			Pressure:    p.Pressure,
			Timestamp:   ts,
		})
		if err != nil {
			log.Error().Err(err).Str("device_id", p.DeviceID).Msg("ingest failed")
			return
		}
		log.Debug().Str("device_id", rd.DeviceID).Float64("total_volume", rd.TotalVolume).Msg("reading stored")
	}

	if token := client.Subscribe(config.MQTTTopic(), 0, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", config.MQTTTopic()).Msg("ingestor running; Ctrl+C to stop")
	for {
		time.Sleep(10 * time.Second)
	}
}
