// Package textutil cleans operator-supplied names before they are sent to
// the backend, where they become storage keys.
package textutil
