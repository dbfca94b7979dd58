//go:build windows

package detect

const replyOnStdout = true
