// Package seed holds the first-run data: the parlor menu and default accounts.
package seed

import (
	"github.com/shopspring/decimal"

	"pos-service/internal/models"
)

type menuEntry struct {
	code, category, name string
	price                int64
}

// Product codes: SC scoops, SU sundaes, CO cones, EX extras.
var menu = []menuEntry{
	{"SC-001", "Scoops", "Vanilla Voyage", 40},
	{"SC-002", "Scoops", "Choco Carnival", 40},
	{"SC-003", "Scoops", "Strawberry Bliss", 40},
	{"SC-004", "Scoops", "Mango Magic", 40},
	{"SC-005", "Scoops", "Butterscotch Crunch", 40},
	{"SC-006", "Scoops", "Coffee Rush", 40},
	{"SC-007", "Scoops", "Majestic Pista", 40},
	{"SC-008", "Scoops", "Epic Two-in-One Vanilla-Strawberry", 40},
	{"SC-009", "Scoops", "Epic Two-in-One Vanilla-Chocolate", 40},
	{"SC-010", "Scoops", "Black Currant Burst", 40},
	{"SC-011", "Scoops", "Fancy Pineapple", 50},
	{"SC-012", "Scoops", "Guava Breeze", 50},
	{"SC-013", "Scoops", "Lychee Love", 50},
	{"SC-014", "Scoops", "Fig & Honey Hug", 50},
	{"SC-015", "Scoops", "Peach Paradise", 50},
	{"SC-016", "Scoops", "Sitaphal Symphony", 50},
	{"SC-017", "Scoops", "Lovely Red Velvet", 60},
	{"SC-018", "Scoops", "Blueberry Blast", 60},
	{"SC-019", "Scoops", "Avocado Treat", 60},
	{"SC-020", "Scoops", "Tender Coconut Treasure", 60},
	{"SC-021", "Scoops", "Passion Fruit Punch", 60},
	{"SC-022", "Scoops", "Jackfruit Fiesta", 60},
	{"SC-023", "Scoops", "Kiwi Kick", 60},
	{"SC-024", "Scoops", "Kesar Badam Pista Royal", 60},
	{"SC-025", "Scoops", "Oreo Crunch", 60},
	{"SC-026", "Scoops", "Blissful Strawberry Cheesecake", 60},
	{"SC-027", "Scoops", "Royal Spanish Delight", 60},

	{"SU-001", "Sundaes", "Death By Chocolate (DBC)", 150},
	{"SU-002", "Sundaes", "Royal Jamoon Treat", 100},
	{"SU-003", "Sundaes", "7 Wonders Sundae", 180},
	{"SU-004", "Sundaes", "5 Wonders Sundae", 140},
	{"SU-005", "Sundaes", "Tiramisu Temptation", 150},
	{"SU-006", "Sundaes", "Blueberry Bliss Sundae", 140},
	{"SU-007", "Sundaes", "Oreo Cookies & Cream Crush", 120},
	{"SU-008", "Sundaes", "Red Velvet Love", 70},
	{"SU-009", "Sundaes", "Purple Velvet Magic", 70},
	{"SU-010", "Sundaes", "Chocovelvet Bliss", 70},

	{"CO-001", "Cones", "Nutty Vanilla Cone", 90},
	{"CO-002", "Cones", "Berry Strawberry Cone", 90},
	{"CO-003", "Cones", "Royal Mango Cone", 90},
	{"CO-004", "Cones", "Choco Crunch Cone", 90},
	{"CO-005", "Cones", "Butterscotch Gold Cone", 120},
	{"CO-006", "Cones", "Velvet Dream Cone", 100},
	{"CO-007", "Cones", "Classic Coffee Cone", 120},
	{"CO-008", "Cones", "Blueberry Cone Blast", 100},
	{"CO-009", "Cones", "Coconut Paradise Cone", 100},
	{"CO-010", "Cones", "Black Currant Rock Cone", 110},
	{"CO-011", "Cones", "Oreo Madness Cone", 110},
	{"CO-012", "Cones", "Royal Pista Cone", 120},
	{"CO-013", "Cones", "Spanish Delight Cone", 120},

	{"EX-001", "Extras", "Parcel Charge", 5},
	{"EX-002", "Extras", "Water Bottle", 10},
	{"EX-003", "Extras", "Cone", 35},
}

// Menu returns a fresh copy of the default catalog.
func Menu() []models.Item {
	items := make([]models.Item, 0, len(menu))
	for _, m := range menu {
		items = append(items, models.Item{
			Code:     m.code,
			Category: m.category,
			Name:     m.name,
			Price:    decimal.NewFromInt(m.price),
		})
	}
	return items
}

// Account is a default operator with a plaintext password, hashed before storage.
type Account struct {
	Username string
	Password string
	Role     string
}

// Accounts returns the admin account plus one staff account.
func Accounts(adminPassword, staffUsername, staffPassword string) []Account {
	accounts := []Account{{Username: "admin", Password: adminPassword, Role: models.RoleAdmin}}
	if staffUsername != "" && staffPassword != "" {
		accounts = append(accounts, Account{Username: staffUsername, Password: staffPassword, Role: models.RoleStaff})
	}
	return accounts
}
