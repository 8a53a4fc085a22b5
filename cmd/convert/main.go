// Command convert runs one cuiles/periodos conversion from the command line.
//
// Usage:
//
//	convert run --cuiles aportes.odb --periodos periodos.accdb --dest cuiles.mdb
//	convert version
package main

func main() {
	Execute()
}
