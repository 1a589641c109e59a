package agent

// Question ids with a fixed query. Resolvers for the same ids live in
// resolvers.go and read the columns these queries alias.
const (
	IDPolicyBeveragesReturnDays = "rag_policy_beverages_return_days"
	IDTop3ProductsByRevenue     = "sql_top3_products_by_revenue_alltime"
	IDAOVWinter1997             = "hybrid_aov_winter_1997"
	IDRevenueBeveragesSummer    = "hybrid_revenue_beverages_summer_1997"
	IDTopCategoryQtySummer      = "hybrid_top_category_qty_summer_1997"
	IDBestCustomerMargin1997    = "hybrid_best_customer_margin_1997"
)

// OrderDate holds "YYYY-MM-DD HH:MM:SS" text, so date() is applied before
// comparing against day bounds.
var lookupQueries = map[string]string{
	IDTop3ProductsByRevenue: `SELECT
    p.ProductName AS product,
    SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS revenue
FROM "Order Details" AS od
JOIN Products AS p ON od.ProductID = p.ProductID
GROUP BY p.ProductName
ORDER BY revenue DESC
LIMIT 3;`,

	IDAOVWinter1997: `SELECT
    SUM(od.UnitPrice * od.Quantity * (1 - od.Discount))
    / COUNT(DISTINCT o.OrderID) AS aov
FROM "Order Details" AS od
JOIN Orders AS o ON od.OrderID = o.OrderID
WHERE date(o.OrderDate) BETWEEN '1997-12-01' AND '1997-12-31';`,

	IDRevenueBeveragesSummer: `SELECT
    SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS revenue
FROM "Order Details" AS od
JOIN Orders AS o ON od.OrderID = o.OrderID
JOIN Products AS p ON od.ProductID = p.ProductID
JOIN Categories AS c ON p.CategoryID = c.CategoryID
WHERE date(o.OrderDate) BETWEEN '1997-06-01' AND '1997-06-30'
  AND c.CategoryName = 'Beverages';`,

	IDTopCategoryQtySummer: `SELECT
    c.CategoryName AS category,
    SUM(od.Quantity) AS total_quantity
FROM "Order Details" AS od
JOIN Orders AS o ON od.OrderID = o.OrderID
JOIN Products AS p ON od.ProductID = p.ProductID
JOIN Categories AS c ON p.CategoryID = c.CategoryID
WHERE date(o.OrderDate) BETWEEN '1997-06-01' AND '1997-06-30'
GROUP BY c.CategoryName
ORDER BY total_quantity DESC
LIMIT 1;`,

	// Cost of goods is taken as 70% of the unit price.
	IDBestCustomerMargin1997: `SELECT
    cu.CompanyName AS customer,
    SUM(0.3 * od.UnitPrice * od.Quantity * (1 - od.Discount)) AS margin
FROM "Order Details" AS od
JOIN Orders AS o ON od.OrderID = o.OrderID
JOIN Customers AS cu ON o.CustomerID = cu.CustomerID
WHERE date(o.OrderDate) BETWEEN '1997-01-01' AND '1997-12-31'
GROUP BY cu.CompanyName
ORDER BY margin DESC
LIMIT 1;`,
}
