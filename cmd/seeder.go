package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample orders and payments for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			if _, err := db.Exec("DELETE FROM payments"); err != nil {
				log.Fatalf("failed to clear payments: %v", err)
			}
			if _, err := db.Exec("DELETE FROM orders"); err != nil {
				log.Fatalf("failed to clear orders: %v", err)
			}
			fmt.Println("Cleared existing orders and payments")
		}

		orders := []struct {
			OrderID       string
			Name          string
			Email         string
			AmountVND     int64
			Items         string
			PaymentStatus string
			Status        string
			TransactionID *string
		}{
			{
				OrderID:       fmt.Sprintf("ORD-%d-seed01", time.Now().UnixMilli()),
				Name:          "Nguyen Van A",
				Email:         "nguyenvana@mail.com",
				AmountVND:     450000,
				Items:         `[{"id":"vase-terra","productId":"vase-terra","title":"Terracotta Vase","price":450000,"quantity":1}]`,
				PaymentStatus: "unpaid",
				Status:        "pending",
			},
			{
				OrderID:       fmt.Sprintf("ORD-%d-seed02", time.Now().UnixMilli()),
				Name:          "Tran Thi B",
				Email:         "tranthib@mail.com",
				AmountVND:     1280000,
				Items:         `[{"id":"bowl-ocean","productId":"bowl-ocean","title":"Ocean Bowl","price":320000,"quantity":4}]`,
				PaymentStatus: "paid",
				Status:        "processing",
				TransactionID: strPtr("SEPAY-SEED-0001"),
			},
		}

		for _, o := range orders {
			var exists int
			if err := db.QueryRow("SELECT 1 FROM orders WHERE order_id = $1", o.OrderID).Scan(&exists); err == nil {
				fmt.Println("order already seeded:", o.OrderID)
				continue
			}

			_, err := db.Exec(
				`INSERT INTO orders (order_id, customer_name, customer_email, amount_vnd, items, payment_status, status, transaction_id, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
				o.OrderID, o.Name, o.Email, o.AmountVND, o.Items, o.PaymentStatus, o.Status, o.TransactionID,
			)
			if err != nil {
				log.Fatalf("failed to insert order %s: %v", o.OrderID, err)
			}

			recordStatus := "pending"
			if o.PaymentStatus == "paid" {
				recordStatus = "success"
			}
			_, err = db.Exec(
				`INSERT INTO payments (order_id, amount_vnd, status, transaction_id, retry_count, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, 0, now(), now())`,
				o.OrderID, o.AmountVND, recordStatus, o.TransactionID,
			)
			if err != nil {
				log.Fatalf("failed to insert payment for %s: %v", o.OrderID, err)
			}

			fmt.Println("Seeded order:", o.OrderID)
		}

		fmt.Println("Seeding completed")
	},
}

func strPtr(s string) *string { return &s }
