// Package logs reads the dialer log file for the `dialer logs` command.
//
// Last returns the trailing lines of the file together with the offset the
// next read should start from. Follow polls from that offset and hands each
// new line to a callback until its context ends, so `dialer logs --follow`
// behaves like tail -f without holding the file open between polls.
package logs
