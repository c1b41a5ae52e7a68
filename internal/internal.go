// Package internal holds helpers shared by the engine packages.
package internal

// Zero overwrites b, which typically held a credential.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
