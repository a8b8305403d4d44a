package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const refreshKeyPrefix = "admin:refresh:"

// RefreshToken é o token opaco entregue ao back office. Só o hash vai para o Redis.
type RefreshToken struct {
	Raw  string
	Hash string
}

// NewRefreshToken sorteia 32 bytes e calcula o hash.
func NewRefreshToken() (RefreshToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, err
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return RefreshToken{Raw: raw, Hash: hashRefresh(raw)}, nil
}

// Key é a chave Redis do token.
func (t RefreshToken) Key() string {
	return refreshKeyPrefix + t.Hash
}

// RefreshKey devolve a chave Redis de um token recebido do cliente.
func RefreshKey(raw string) string {
	return refreshKeyPrefix + hashRefresh(raw)
}

func hashRefresh(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
