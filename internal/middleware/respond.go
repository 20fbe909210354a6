package middleware

import "github.com/gofiber/fiber/v2"

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func reject(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(errorBody{Message: message})
}
