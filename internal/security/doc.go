// Package security derives a posture report from the effective
// configuration, with warnings for settings that weaken authentication or
// request defense. It performs no I/O.
package security
