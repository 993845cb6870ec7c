package main

import (
	"encoding/json"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/hidrotek/water-dispenser-system/internal/config"
)

type reading struct {
	DeviceID    string  `json:"device_id"`
	Timestamp   string  `json:"timestamp"`
	FlowRate    float64 `json:"flow_rate"`
	PulseCount  int64   `json:"pulse_count"`
	Unit        string  `json:"unit"`
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	pulsesPerLiter := config.PulsesPerLiter()
	var pulseCount int64

	for i := 0; i < 100; i++ {
		// 10-20 L/min at a 500ms sample interval
		flowRate := 15 + rand.Float64()*10 - 5
		litersThisTick := flowRate * 0.5 / 60
		pulseCount += int64(litersThisTick * pulsesPerLiter)

		// Simulate a sensor reboot mid-run: the counter starts over and
		// the backend's reset handling has to absorb it.
		if i == 60 {
			pulseCount = int64(litersThisTick * pulsesPerLiter)
			log.Info().Msg("simulating counter reset")
		}

		r := reading{
			DeviceID:    config.DeviceID(),
			Timestamp:   time.Now().Format(time.RFC3339),
			FlowRate:    flowRate,
			PulseCount:  pulseCount,
			Unit:        "L/min",
			Temperature: 20 + rand.Float64()*5,
			Pressure:    1.5 + rand.Float64(),
		}
		payload, _ := json.Marshal(r)
		token := client.Publish(config.MQTTTopic(), 0, false, payload)
		token.Wait()
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Msg("simulation done")
}
