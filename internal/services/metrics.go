package services

import "github.com/prometheus/client_golang/prometheus"

// imagesClassified counts images classified from detector output, by category.
var imagesClassified = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warehouse_images_classified_total",
		Help: "Images classified from detector output, by category.",
	},
	[]string{"category"},
)

func init() {
	prometheus.MustRegister(imagesClassified)
}
