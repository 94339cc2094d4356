package store

import (
	"time"
)

// Customer is a locally registered test customer. The console keeps its own
// registry so attempts can be launched without the backend being reachable.
type Customer struct {
	ID         int64
	CustomerID string
	Name       string
	BuyerID    string
	Domain     string
	CreatedAt  time.Time
}

func (db *DB) CreateCustomer(c *Customer) (int64, error) {
	if c.Domain == "" {
		c.Domain = "NetworkID"
	}
	if db.driver == "postgres" {
		var id int64
		err := db.QueryRow(db.Q(`INSERT INTO customers (customer_id, name, buyer_id, domain) VALUES (?, ?, ?, ?) RETURNING id`),
			c.CustomerID, c.Name, c.BuyerID, c.Domain).Scan(&id)
		return id, err
	}
	res, err := db.Exec(db.Q(`INSERT INTO customers (customer_id, name, buyer_id, domain) VALUES (?, ?, ?, ?)`),
		c.CustomerID, c.Name, c.BuyerID, c.Domain)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) GetCustomer(customerID string) (*Customer, error) {
	var c Customer
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, customer_id, name, buyer_id, domain, created_at FROM customers WHERE customer_id=?`), customerID).
		Scan(&c.ID, &c.CustomerID, &c.Name, &c.BuyerID, &c.Domain, &createdAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (db *DB) ListCustomers() ([]*Customer, error) {
	rows, err := db.Query(`SELECT id, customer_id, name, buyer_id, domain, created_at FROM customers ORDER BY name, customer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []*Customer
	for rows.Next() {
		var c Customer
		var createdAt any
		if err := rows.Scan(&c.ID, &c.CustomerID, &c.Name, &c.BuyerID, &c.Domain, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

func (db *DB) UpdateCustomer(c *Customer) error {
	_, err := db.Exec(db.Q(`UPDATE customers SET name=?, buyer_id=?, domain=? WHERE customer_id=?`),
		c.Name, c.BuyerID, c.Domain, c.CustomerID)
	return err
}

func (db *DB) DeleteCustomer(customerID string) error {
	_, err := db.Exec(db.Q(`DELETE FROM customers WHERE customer_id=?`), customerID)
	return err
}
