package main

import "github.com/amsoft/dukpay-checkout/cmd"

func main() {
	cmd.Execute()
}
