// Package security builds the read-only posture report exposed by
// Engine.SecurityReport. It only reads configuration; nothing here changes
// engine behavior.
package security
