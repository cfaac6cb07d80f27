//go:build !unix

package emitter

func signalName(int) string { return "UNKNOWN" }
