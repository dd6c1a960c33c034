// Package secret provides the opaque String/Bytes wrappers credentials use
// to carry secret material. Values never expose plaintext except through an
// explicit decrypt call against an injected cipher provider, and their
// default serialisation emits ciphertext or the redacted literal token.
package secret
