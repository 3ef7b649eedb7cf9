package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"venuedir/config"
	"venuedir/database"
	"venuedir/models"
	"venuedir/services/directory"
	"venuedir/utils"
)

type sample struct {
	name       string
	categories []string
	style      string
	address    string
}

var samples = []sample{
	{"Boteco do João", []string{"Boteco"}, "Tradicional", "Rua Augusta, 1200, São Paulo"},
	{"Bar do Zé", []string{"Boteco", "Petiscos"}, "Tradicional", "Rua dos Pinheiros, 320, São Paulo"},
	{"Izakaya Kenzo", []string{"Izakaya", "Japonês"}, "Intimista", "Rua Galvão Bueno, 85, São Paulo"},
	{"Izakaya Matsu", []string{"Izakaya"}, "Balcão", "Rua Tomás Gonzaga, 40, São Paulo"},
	{"Coquetelaria Aurora", []string{"Drink bar", "Coquetel"}, "Moderno", "Rua Oscar Freire, 910, São Paulo"},
	{"Cocktail Club 33", []string{"Cocktail bar"}, "Speakeasy", "Alameda Lorena, 1500, São Paulo"},
	{"Boteco Esquina", []string{"Boteco"}, "Tradicional", "Rua Harmonia, 150, São Paulo"},
	{"Choperia Central", []string{"Cervejaria"}, "Descontraído", "Avenida Paulista, 2000, São Paulo"},
	{"Drinkeria Lua", []string{"Drink bar"}, "Terraço", "Rua Aspicuelta, 600, São Paulo"},
	{"Bar Brahma", []string{"Boteco", "Música ao vivo"}, "Histórico", "Avenida São João, 677, São Paulo"},
	{"Sake House", []string{"Izakaya", "Saquê"}, "Intimista", "Rua da Glória, 300, São Paulo"},
	{"Bar Secreto", []string{"Coquetel"}, "Speakeasy", "Rua Fradique Coutinho, 1000, São Paulo"},
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cols, err := database.OpenCollections(ctx, logger)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer cols.Close()

	// Clear existing merchants.
	existing, err := cols.Merchants.List(ctx)
	if err != nil {
		log.Fatalf("Failed to list merchants: %v", err)
	}
	for _, doc := range existing {
		if err := cols.Merchants.Delete(ctx, doc.ID); err != nil {
			log.Fatalf("Failed to delete merchant %s: %v", doc.ID, err)
		}
	}

	dir, err := directory.NewGateway(cols.Merchants, nil, config.AppConfig.RemoteTimeout(), logger)
	if err != nil {
		log.Fatalf("Failed to build merchant gateway: %v", err)
	}

	// Center of the simulated neighbourhood (São Paulo).
	centerLat, centerLng := -23.5505, -46.6333
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i, s := range samples {
		m := models.Merchant{
			ID:           fmt.Sprintf("merchant-%02d", i+1),
			Name:         s.name,
			Categories:   s.categories,
			Style:        s.style,
			AddressText:  s.address,
			Description:  fmt.Sprintf("%s em São Paulo.", s.name),
			OpeningHours: eveningHours(),
		}
		critic := math.Round((3+rng.Float64()*2)*10) / 10
		m.CriticRating = &critic

		// Every third merchant is left without coordinates so the geocoder resolves it.
		if i%3 != 2 {
			distanceKm := 0.2 + rng.Float64()*4.8
			angle := rng.Float64() * 2 * math.Pi
			m.Coordinate = models.Coordinate{
				Latitude:  centerLat + distanceKm*0.009*math.Sin(angle),
				Longitude: centerLng + distanceKm*0.0098*math.Cos(angle),
			}
		}

		created, err := dir.CreateMerchant(ctx, m)
		if err != nil {
			log.Fatalf("Failed to create merchant %q: %v", s.name, err)
		}
		fmt.Printf("Inserted %s (%s)\n", created.Name, created.ID)
	}

	fmt.Printf("Successfully inserted %d merchants into %s\n", len(samples), cols.Merchants.Name())
}

// eveningHours opens Tuesday to Sunday from 18:00, past midnight on weekends.
func eveningHours() *models.OpeningHours {
	var h models.OpeningHours
	for d := time.Sunday; d <= time.Saturday; d++ {
		switch d {
		case time.Monday:
			h[d] = &models.DayHours{IsClosed: true}
		case time.Friday, time.Saturday:
			h[d] = &models.DayHours{Open: "18:00", Close: "02:00"}
		default:
			h[d] = &models.DayHours{Open: "18:00", Close: "23:30"}
		}
	}
	return &h
}
