// Command barotest reads the MS5611 directly and prints compensated values,
// for wiring checks and bench tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"barocode-go/drivers/ms5611"
	"barocode-go/x/timex"
)

func main() {
	device := flag.String("device", "", "I2C bus name (empty selects the first available)")
	addr := flag.Uint("addr", ms5611.Address, "I2C address of the sensor")
	rate := flag.Uint("rate", 50, "sampling frequency in Hz")
	qnh := flag.Float64("qnh", ms5611.DefaultSeaLevelPressure, "sea-level reference pressure (hPa)")
	every := flag.Duration("every", time.Second, "print interval")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalln("periph host init:", err)
	}
	b, err := i2creg.Open(*device)
	if err != nil {
		log.Fatalln("open I2C bus:", err)
	}
	defer b.Close()

	dev := ms5611.New(b)
	if err := dev.Configure(ms5611.Config{
		Address:      uint16(*addr),
		SamplePeriod: timex.PeriodFromHz(uint32(*rate)),
	}); err != nil {
		log.Fatalln("configure MS5611:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dev.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	tick := time.NewTicker(*every)
	defer tick.Stop()
	for {
		select {
		case <-sig:
			return
		case <-tick.C:
			if !dev.DataReady() {
				continue
			}
			dev.Update()
			fmt.Printf("%7.2f °C  %8.2f hPa  %8.1f m  (bus faults: %d)\n",
				dev.Temperature(), dev.Pressure(), dev.Altitude(*qnh), dev.BusFaults())
		}
	}
}
