// facebox - Live camera preview with green boxes around detected faces
package main

import "runtime"

func init() {
	// HighGUI windows must be driven from the main OS thread
	runtime.LockOSThread()
}

func main() {
	Execute()
}
