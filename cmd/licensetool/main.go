package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"mneo.com/vms/config"
	"mneo.com/vms/core"
	"mneo.com/vms/security"
	"mneo.com/vms/utils"
)

// licensetool generates (and optionally activates) the license key for the
// machine it runs on. Run it on the kiosk itself: keys are MAC-bound.
func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the kiosk configuration file")
	expiry := flag.String("expiry", "", "license expiry date (yyyy-MM-dd), default one year from today")
	activate := flag.Bool("activate", false, "store the generated key as this device's active license")
	flag.Parse()

	if *expiry == "" {
		*expiry = time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	}
	if _, err := utils.ParseDate(*expiry); err != nil {
		log.Fatal(err)
	}

	mac, err := security.DeviceMAC()
	if err != nil {
		log.Fatal(err)
	}
	key := security.GenerateKey(mac, *expiry)

	fmt.Println("VMS License Tool")
	fmt.Printf("Device MAC:  %s\n", mac)
	fmt.Printf("Expiry:      %s\n", *expiry)
	fmt.Printf("License key: %s\n", key)

	if !*activate {
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	dm, err := core.Open(cfg.DatabasePath, core.LogLevelSilent)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	if err := dm.EnsureSchema(); err != nil {
		log.Fatal(err)
	}

	manager := security.NewManager(core.NewStore(dm))
	if err := manager.Activate(key, *expiry); err != nil {
		log.Fatal(err)
	}
	fmt.Println("License activated.")
}
