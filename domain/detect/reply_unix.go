//go:build !windows

package detect

const replyOnStdout = false
