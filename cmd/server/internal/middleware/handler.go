package middleware

import "gorm.io/gorm"

// Shared state of the database backed middlewares
type Handler struct {
	DB *gorm.DB
}
