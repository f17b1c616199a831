// Package util holds small shared helpers.
package util

// MaskCode obscures a card code for logging, showing only the first and last
// few characters. Codes grant access on their own, so full values never go to
// the log stream.
func MaskCode(code string) string {
	if len(code) > 8 {
		return code[:4] + "..." + code[len(code)-4:]
	} else if len(code) > 4 {
		return code[:2] + "..." + code[len(code)-2:]
	} else if len(code) > 2 {
		return code[:1] + "..." + code[len(code)-1:]
	}
	return code
}
