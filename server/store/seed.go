package store

import contractx "github.com/tanpawarit/cesto-mcp-server/server/contract"

// DemoSeed loads a small basket catalog so STORE_MODE=memory runs have
// something to serve. Production catalogs live in Postgres.
func DemoSeed(m *Memory) {
	products := []contractx.Product{
		{
			ID:          "basket-breakfast-01",
			Name:        "Cesta Café da Manhã",
			Description: "Cesta de café da manhã com pães, frutas, bolo e suco.",
			Price:       159.90,
			ImageURL:    "https://cdn.cestodamore.example/basket-breakfast-01.jpg",
			Occasions:   []string{"breakfast", "birthday"},
		},
		{
			ID:          "basket-romance-01",
			Name:        "Cesta Romance Clássica",
			Description: "Chocolates, vinho sem álcool e rosas vermelhas.",
			Price:       50.00,
			ImageURL:    "https://cdn.cestodamore.example/basket-romance-01.jpg",
			Occasions:   []string{"romance", "anniversary"},
		},
		{
			ID:          "basket-romance-02",
			Name:        "Cesta Romance Mini",
			Description: "Versão compacta com chocolates e uma rosa.",
			Price:       30.00,
			ImageURL:    "https://cdn.cestodamore.example/basket-romance-02.jpg",
			Occasions:   []string{"romance"},
		},
		{
			ID:          "basket-romance-03",
			Name:        "Cesta Romance Premium",
			Description: "Cesta completa com espumante, flores e quadro polaroide.",
			Price:       80.00,
			ImageURL:    "https://cdn.cestodamore.example/basket-romance-03.jpg",
			Occasions:   []string{"romance", "wedding"},
		},
		{
			ID:          "flowers-roses-12",
			Name:        "Buquê 12 Rosas Vermelhas",
			Description: "Buquê de doze rosas vermelhas com embalagem presente.",
			Price:       89.90,
			ImageURL:    "https://cdn.cestodamore.example/flowers-roses-12.jpg",
			Occasions:   []string{"romance", "apology"},
		},
	}
	stocks := map[string]int64{
		"basket-breakfast-01": 2,
		"basket-romance-01":   5,
		"basket-romance-02":   8,
		"basket-romance-03":   3,
		"flowers-roses-12":    10,
	}
	m.SeedProducts(products, stocks)
	m.SeedAddons([]contractx.Addon{
		{Name: "Balão metalizado", Price: 10.00, Description: "Balão temático para a ocasião."},
		{Name: "Caixa de bombons", Price: 18.50, Description: "Bombons sortidos 250g."},
		{Name: "Urso de pelúcia", Price: 35.00, Description: "Pelúcia média 30cm."},
	})
}
