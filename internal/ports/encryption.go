package ports

// SymKeyPackage is freshly encrypted content plus its content key wrapped
// for the local principal.
type SymKeyPackage struct {
	CipherText string
	CipherKey  string
}

// Encryptor is the local crypto capability. Cipher keys are always content
// keys wrapped to some principal's public key, encoded as text.
type Encryptor interface {
	// EncryptSharable encrypts plaintext under a new content key.
	EncryptSharable(plaintext string) (*SymKeyPackage, error)

	EncryptWithCipherKey(cipherKey, plaintext string) (string, error)
	DecryptWithCipherKey(cipherKey, cipherText string) (string, error)

	// WrapForPrincipal unwraps cipherKey with the local private key and
	// wraps the content key again for publicKey.
	WrapForPrincipal(cipherKey, publicKey string) (string, error)

	// PublicKey returns the local principal's encoded public key.
	PublicKey() string
}
