package util

import gonanoid "github.com/matoous/go-nanoid/v2"

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandStr returns a random alphanumeric string of length n
func RandStr(n int) string {
	s, err := gonanoid.Generate(charset, n)
	if err != nil {
		// Only fails when the system random source is broken
		panic(err)
	}

	return s
}
