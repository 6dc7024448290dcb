package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"medilink_app_echo/internal/services"
)

// Diagnostic sender for the WhatsApp gateway. Useful when wiring up a new
// WAHA instance before pointing the worker at it.
func main() {
	phone := flag.String("phone", "", "Phone number (e.g. 2348123456789)")
	msg := flag.String("msg", "Test message from WhatsappService", "Message body")
	flag.Parse()

	if *phone == "" {
		log.Fatal("Please provide a phone number using -phone flag")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found")
	}

	service := services.NewWhatsappService()
	chatID := services.NormalizeChatID(*phone)

	log.Printf("Sending message to %s: %s", chatID, *msg)

	if err := service.SendMessage(chatID, *msg); err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}

	log.Println("Message sent successfully!")
}
