package auth

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// ErrEmptyPassword impede cadastrar usuário sem senha.
var ErrEmptyPassword = errors.New("senha vazia")

var params = &argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// dummyHash é comparado quando o e-mail não existe, para o login levar o mesmo tempo.
var dummyHash, _ = argon2id.CreateHash("eventos-usuario-inexistente", params)

// Hash gera o hash de users.password_hash.
func Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	return argon2id.CreateHash(password, params)
}

// Verify compara a senha com o hash; os parâmetros vêm do próprio hash.
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}

// VerifyMissing gasta o custo de uma verificação e sempre falha.
func VerifyMissing(password string) bool {
	_, _ = argon2id.ComparePasswordAndHash(password, dummyHash)
	return false
}
