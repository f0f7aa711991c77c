package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const characters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateRunID identifica uma execução de reconciliação no log e no histórico.
func GenerateRunID() (string, error) {
	return gonanoid.Generate(characters, 12)
}
