// coastflow-provision downloads a coastline shapefile and writes all
// three resolution tiers into the SQLite cache the viewer reads at
// startup.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/coastflow/coastflow/internal/coastline"
)

// GSHHG-derived world coastline polygons, full resolution.
const defaultShapefileURL = "https://www.ngdc.noaa.gov/mgg/shorelines/data/gshhg/latest/gshhg-shp-2.3.7.zip"

func main() {
	dbPath := flag.String("db", "data/coastline.db", "SQLite cache path to provision")
	shpPath := flag.String("shapefile", "", "Use a local .shp file instead of downloading")
	url := flag.String("url", defaultShapefileURL, "Zipped coastline shapefile URL")
	downloadDir := flag.String("download-dir", "data/shapefile", "Directory for the downloaded archive")
	flag.Parse()

	if err := run(*dbPath, *shpPath, *url, *downloadDir); err != nil {
		fmt.Printf("Error provisioning coastline: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath, shpPath, url, downloadDir string) error {
	if shpPath == "" {
		var err error
		shpPath, err = coastline.DownloadShapefile(url, downloadDir)
		if err != nil {
			return err
		}
	}

	db, err := coastline.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := coastline.ProvisionFromShapefile(shpPath, db); err != nil {
		return err
	}
	log.Printf("Coastline tiers written to %s", dbPath)
	return nil
}
