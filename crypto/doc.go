// Package crypto provides the session body cipher for the chat core.
//
// Message bodies travel as opaque encrypted blobs; the engine only
// consumes an injected decryptor and never participates in key
// management. This package supplies one concrete implementation of
// that collaborator: NaCl secretbox authenticated symmetric
// encryption under a pre-established session key, with the nonce
// prefixed to the ciphertext and the result base64-encoded so it
// survives JSON transport without corruption.
//
//	key := session.SharedKey()
//	sealed, _ := crypto.EncryptBody("hello", key)
//	options.Decrypt = crypto.NewDecryptor(key)
//
// How the session key is established is outside this package's scope.
package crypto
