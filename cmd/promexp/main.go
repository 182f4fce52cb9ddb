// Command promexp exposes the barometric readings as Prometheus gauges.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"barocode-go/bus"
	"barocode-go/drivers/ms5611"
	"barocode-go/services/baro"
)

func main() {
	device := flag.String("device", "", "I2C bus name (empty selects the first available)")
	promaddr := flag.String("prometheus", ":9672", "Prometheus exporter address")
	qnh := flag.Float64("qnh", ms5611.DefaultSeaLevelPressure, "sea-level reference pressure (hPa)")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalln("periph host init:", err)
	}
	b, err := i2creg.Open(*device)
	if err != nil {
		log.Fatalln("open I2C bus:", err)
	}
	defer b.Close()

	svc := baro.New(ms5611.New(b), bus.NewBus(8).NewConnection("baro"), baro.Config{
		SeaLevelPressure: *qnh,
		BusName:          *device,
	})
	go func() {
		if err := svc.Run(context.Background()); err != nil {
			log.Fatalln("baro service:", err)
		}
	}()

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sensors",
		Subsystem: "ms5611",
		Name:      "temperature_degC",
	}, func() float64 {
		s, _ := svc.Latest()
		return round(s.Temperature, 2)
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sensors",
		Subsystem: "ms5611",
		Name:      "pressure_hpa",
	}, func() float64 {
		s, _ := svc.Latest()
		return round(s.Pressure, 2)
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sensors",
		Subsystem: "ms5611",
		Name:      "altitude_m",
	}, func() float64 {
		s, _ := svc.Latest()
		return round(s.Altitude, 1)
	})

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sensors",
		Subsystem: "ms5611",
		Name:      "bus_faults_total",
	}, func() float64 {
		s, _ := svc.Latest()
		return float64(s.BusFaults)
	})

	http.Handle("/metrics", promhttp.Handler())
	log.Fatalln(http.ListenAndServe(*promaddr, nil))
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
