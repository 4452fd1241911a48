package decoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikelpsv/gousb"
)

/*
// Tested device
//
// Device: Voyager-1200g
// Vendor: 0x0c2e Metrologic Instruments
// Product:
//   0x0a01: keyboard emulation
//   0x0a0a: COM
//   0x0a07: HID
// wMaxPacketSize     0x0040  1x 64 bytes
*/

type ScannerMode uint8

const (
	ScannerModeUnknown ScannerMode = iota
	/*
		bInterfaceClass 		3 Human Interface Device
		bInterfaceSubClass 		1 Boot Interface Subclass
		bInterfaceProtocol      1 Keyboard
	*/
	ScannerModeHIDKeyboardEmulation
	/*
		bInterfaceClass         3 Human Interface Device
		bInterfaceSubClass      0
		bInterfaceProtocol      0
	*/
	ScannerModeHIDDevice
	/*
	   bInterfaceClass         2 Communications
	   bInterfaceSubClass      2 Abstract (modem)
	   bInterfaceProtocol      1 AT-commands
	*/
	ScannerModeCOMEmulation
)

var scannerModeDescription = map[ScannerMode]string{
	ScannerModeUnknown:              "unknown",
	ScannerModeHIDKeyboardEmulation: "keyboard",
	ScannerModeHIDDevice:            "hid",
	ScannerModeCOMEmulation:         "com",
}

func (sm ScannerMode) String() string {
	return scannerModeDescription[sm]
}

func modeFor(class, subClass gousb.Class, protocol gousb.Protocol) ScannerMode {
	switch {
	case class == 3 && subClass == 1 && protocol == 1:
		return ScannerModeHIDKeyboardEmulation
	case class == 3 && subClass == 0 && protocol == 0:
		return ScannerModeHIDDevice
	case class == 2 && subClass == 2 && protocol == 1:
		return ScannerModeCOMEmulation
	}
	return ScannerModeUnknown
}

// endpointInfo locates the first IN endpoint of the scanner.
type endpointInfo struct {
	Config        int
	Interface     int
	Setup         int
	Endpoint      int
	MaxPacketSize int
	Mode          ScannerMode
}

// USBSource reads codes from a USB barcode scanner.
type USBSource struct {
	Vendor  gousb.ID
	Product gousb.ID
	Serial  string
}

func NewUSBSource(vendor, product uint16, serial string) *USBSource {
	return &USBSource{Vendor: gousb.ID(vendor), Product: gousb.ID(product), Serial: serial}
}

func (s *USBSource) Name() string {
	return fmt.Sprintf("usb:%s:%s", s.Vendor, s.Product)
}

func (s *USBSource) Run(ctx context.Context, emit func(ScanEvent)) error {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	dev, err := s.open(usbCtx)
	if err != nil {
		return err
	}
	defer dev.Close()

	if err := dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("auto detach: %w", err)
	}

	info, err := findInEndpoint(dev.Desc)
	if err != nil {
		return err
	}

	cfg, err := dev.Config(info.Config)
	if err != nil {
		return fmt.Errorf("select config %d: %w", info.Config, err)
	}
	defer cfg.Close()

	intf, err := cfg.Interface(info.Interface, info.Setup)
	if err != nil {
		return fmt.Errorf("claim interface %d: %w", info.Interface, err)
	}
	defer intf.Close()

	ep, err := intf.InEndpoint(info.Endpoint)
	if err != nil {
		return fmt.Errorf("open endpoint %d: %w", info.Endpoint, err)
	}

	assembler := newAssembler(info.Mode)
	buf := make([]byte, info.MaxPacketSize)
	for {
		n, err := ep.ReadContext(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			emit(ScanEvent{Source: s.Name(), Err: err.Error(), ScannedAt: time.Now()})
			return fmt.Errorf("read endpoint: %w", err)
		}
		if n == 0 {
			continue
		}
		for _, code := range assembler.Feed(buf[:n]) {
			emit(ScanEvent{Code: code, Source: s.Name(), ScannedAt: time.Now()})
		}
	}
}

func (s *USBSource) open(usbCtx *gousb.Context) (*gousb.Device, error) {
	var dev *gousb.Device
	var err error
	if s.Serial == "" {
		dev, err = usbCtx.OpenDeviceWithVIDPID(s.Vendor, s.Product)
	} else {
		dev, err = usbCtx.OpenDeviceWithVIDPIDSerial(s.Vendor, s.Product, s.Serial)
	}
	if err != nil {
		return nil, fmt.Errorf("open scanner %s:%s: %w", s.Vendor, s.Product, err)
	}
	if dev == nil {
		return nil, fmt.Errorf("scanner %s:%s not found", s.Vendor, s.Product)
	}
	return dev, nil
}

var errNoInEndpoint = errors.New("scanner has no IN endpoint")

func findInEndpoint(desc *gousb.DeviceDesc) (endpointInfo, error) {
	for _, cfg := range desc.Configs {
		for _, alt := range cfg.Interfaces {
			for _, iface := range alt.AltSettings {
				for _, end := range iface.Endpoints {
					if end.Direction != gousb.EndpointDirectionIn {
						continue
					}
					return endpointInfo{
						Config:        cfg.Number,
						Interface:     alt.Number,
						Setup:         iface.Alternate,
						Endpoint:      end.Number,
						MaxPacketSize: end.MaxPacketSize,
						Mode:          modeFor(iface.Class, iface.SubClass, iface.Protocol),
					}, nil
				}
			}
		}
	}
	return endpointInfo{}, errNoInEndpoint
}

// DeviceDesc is a USB device descriptor with its string descriptors resolved.
type DeviceDesc struct {
	ManufacturerDesc string
	ProductDesc      string
	Serial           string
	gousb.DeviceDesc
}

// ListUSBDevices enumerates attached devices, for picking USB_VENDOR_ID and USB_PRODUCT_ID.
func ListUSBDevices() ([]DeviceDesc, error) {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()
	if err != nil {
		return nil, err
	}

	devList := make([]DeviceDesc, 0, len(devs))
	for _, d := range devs {
		dd := DeviceDesc{DeviceDesc: *d.Desc}
		dd.ManufacturerDesc, _ = d.Manufacturer()
		dd.ProductDesc, _ = d.Product()
		dd.Serial, _ = d.SerialNumber()
		devList = append(devList, dd)
	}
	return devList, nil
}
