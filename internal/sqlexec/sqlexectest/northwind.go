// Package sqlexectest builds small Northwind-shaped SQLite files for tests.
package sqlexectest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

var ddl = []string{
	`CREATE TABLE Categories (CategoryID INTEGER PRIMARY KEY, CategoryName TEXT NOT NULL)`,
	`CREATE TABLE Products (ProductID INTEGER PRIMARY KEY, ProductName TEXT NOT NULL, CategoryID INTEGER, UnitPrice REAL)`,
	`CREATE TABLE Customers (CustomerID TEXT PRIMARY KEY, CompanyName TEXT NOT NULL)`,
	`CREATE TABLE Orders (OrderID INTEGER PRIMARY KEY, CustomerID TEXT, OrderDate DATETIME)`,
	`CREATE TABLE "Order Details" (OrderID INTEGER, ProductID INTEGER, UnitPrice REAL, Quantity INTEGER, Discount REAL)`,
}

// The fixture is small enough to check by hand:
//
//	all-time revenue: Côte de Blaye 3162, Mozzarella di Giovanni 870, Chai 360, Chang 342, Aniseed Syrup 50
//	Winter Classics 1997 (December) AOV: (527 + 180) / 2 = 353.5
//	Summer Beverages 1997 (June) Beverages revenue: 180 + 342 = 522
//	June 1997 quantity by category: Beverages 30, Dairy Products 25, Condiments 5
//	1997 gross margin (30% of revenue): Bon app' 363.6, QUICK-Stop 212.1, Alfreds Futterkiste 69
var (
	categories = [][]any{
		{1, "Beverages"},
		{2, "Condiments"},
		{4, "Dairy Products"},
	}
	products = [][]any{
		{1, "Chai", 1, 18.0},
		{2, "Chang", 1, 19.0},
		{3, "Aniseed Syrup", 2, 10.0},
		{38, "Côte de Blaye", 1, 263.5},
		{72, "Mozzarella di Giovanni", 4, 34.8},
	}
	customers = [][]any{
		{"ALFKI", "Alfreds Futterkiste"},
		{"BONAP", "Bon app'"},
		{"QUICK", "QUICK-Stop"},
	}
	orders = [][]any{
		{10001, "ALFKI", "1997-06-05 00:00:00"},
		{10002, "BONAP", "1997-06-20 00:00:00"},
		{10003, "QUICK", "1997-12-10 00:00:00"},
		{10004, "QUICK", "1997-12-31 00:00:00"},
		{10005, "ALFKI", "1996-03-01 00:00:00"},
	}
	details = [][]any{
		{10001, 1, 18.0, 10, 0.0},
		{10001, 3, 10.0, 5, 0.0},
		{10002, 2, 19.0, 20, 0.1},
		{10002, 72, 34.8, 25, 0.0},
		{10003, 38, 263.5, 2, 0.0},
		{10004, 1, 18.0, 10, 0.0},
		{10005, 38, 263.5, 10, 0.0},
	}
)

// Northwind writes the fixture database into a temp dir and returns its path.
func Northwind(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "northwind.sqlite")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer db.Close()

	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create fixture schema: %v", err)
		}
	}

	insert(t, db, `INSERT INTO Categories VALUES (?, ?)`, categories)
	insert(t, db, `INSERT INTO Products VALUES (?, ?, ?, ?)`, products)
	insert(t, db, `INSERT INTO Customers VALUES (?, ?)`, customers)
	insert(t, db, `INSERT INTO Orders VALUES (?, ?, ?)`, orders)
	insert(t, db, `INSERT INTO "Order Details" VALUES (?, ?, ?, ?, ?)`, details)
	return path
}

func insert(t testing.TB, db *sql.DB, stmt string, rows [][]any) {
	t.Helper()
	for _, r := range rows {
		if _, err := db.Exec(stmt, r...); err != nil {
			t.Fatalf("seed fixture: %v", err)
		}
	}
}
