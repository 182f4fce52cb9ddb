// Command baromqtt samples the MS5611 and publishes the readings to an MQTT
// broker as retained JSON messages.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"barocode-go/bus"
	"barocode-go/drivers/ms5611"
	"barocode-go/services/baro"
	"barocode-go/services/mqttbridge"
)

func main() {
	device := flag.String("device", "", "I2C bus name (empty selects the first available)")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
	clientID := flag.String("client-id", "baro-bridge", "MQTT client id")
	prefix := flag.String("topic-prefix", "sensors/baro", "remote topic prefix")
	qnh := flag.Float64("qnh", ms5611.DefaultSeaLevelPressure, "sea-level reference pressure (hPa)")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalln("periph host init:", err)
	}
	i2cBus, err := i2creg.Open(*device)
	if err != nil {
		log.Fatalln("open I2C bus:", err)
	}
	defer i2cBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	b := bus.NewBus(16)

	// The bridge subscribes before the sensor publishes so no reading is
	// missed at startup.
	bridge := mqttbridge.New(b.NewConnection("bridge"), mqttbridge.Config{
		BrokerURL:   *broker,
		ClientID:    *clientID,
		TopicPrefix: *prefix,
	})
	bridgeDone := make(chan error, 1)
	go func() { bridgeDone <- bridge.Run(ctx) }()

	svc := baro.New(ms5611.New(i2cBus), b.NewConnection("baro"), baro.Config{
		SeaLevelPressure: *qnh,
		BusName:          *device,
	})
	if err := svc.Run(ctx); err != nil {
		log.Fatalln("baro service:", err)
	}
	if err := <-bridgeDone; err != nil && err != context.Canceled {
		log.Fatalln("mqtt bridge:", err)
	}
}
