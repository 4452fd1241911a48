// Command usb-list prints attached USB devices so USB_VENDOR_ID and
// USB_PRODUCT_ID can be filled in.
package main

import (
	"fmt"
	"log"

	"barcode-lookup/pkg/decoder"

	"github.com/fatih/color"
)

func main() {
	devices, err := decoder.ListUSBDevices()
	if err != nil {
		log.Fatalf("Unable to enumerate USB devices: %v", err)
	}
	if len(devices) == 0 {
		color.Yellow("No USB devices found")
		return
	}

	id := color.New(color.FgCyan).SprintFunc()
	for _, d := range devices {
		fmt.Printf("%s:%s  %s %s", id(d.Vendor), id(d.Product), d.ManufacturerDesc, d.ProductDesc)
		if d.Serial != "" {
			fmt.Printf("  serial=%s", d.Serial)
		}
		fmt.Println()
	}
}
