package coastline

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jonas-p/go-shp"

	"github.com/coastflow/coastflow/internal/geo"
)

// Vertex decimation applied per tier when provisioning from a full
// resolution shapefile. Coarse keeps roughly one vertex in sixteen.
var tierDecimation = map[Tier]int{
	TierCoarse: 16,
	TierMedium: 4,
	TierFine:   1,
}

// minRingVertices drops slivers that decimation reduced below a drawable
// polygon.
const minRingVertices = 4

// ProvisionFromShapefile reads a coastline shapefile and writes all three
// resolution tiers into db, decimating vertices per tier. Existing tier
// rows are replaced.
func ProvisionFromShapefile(shapefilePath string, db *DB) error {
	shape, err := shp.Open(shapefilePath)
	if err != nil {
		return fmt.Errorf("opening shapefile: %w", err)
	}
	defer shape.Close()

	var rings []Ring
	for shape.Next() {
		_, p := shape.Shape()
		polygon, ok := p.(*shp.Polygon)
		if !ok {
			continue
		}
		rings = append(rings, shapefileRings(polygon)...)
	}
	if len(rings) == 0 {
		return fmt.Errorf("shapefile %s contains no polygons", shapefilePath)
	}
	log.Printf("Read %d coastline rings from %s", len(rings), shapefilePath)

	for _, tier := range Tiers {
		keep := tierDecimation[tier]
		polys := make([]Polygon, 0, len(rings))
		for _, r := range rings {
			d := decimateRing(r, keep)
			if len(d) < minRingVertices {
				continue
			}
			polys = append(polys, NewPolygon(d))
		}
		set := NewPolygonSet(tier, polys)
		if err := db.StoreTier(set); err != nil {
			return fmt.Errorf("storing %s tier: %w", tier, err)
		}
		log.Printf("Provisioned %s tier: %d polygons", tier, len(polys))
	}
	return nil
}

// shapefileRings splits a shapefile polygon record into its parts. Each
// part is treated as an independent outer ring; coastline shapefiles
// carry lakes as separate records rather than holes.
func shapefileRings(p *shp.Polygon) []Ring {
	out := make([]Ring, 0, len(p.Parts))
	for partIdx := 0; partIdx < len(p.Parts); partIdx++ {
		start := int(p.Parts[partIdx])
		end := len(p.Points)
		if partIdx+1 < len(p.Parts) {
			end = int(p.Parts[partIdx+1])
		}
		if end-start < minRingVertices {
			continue
		}
		r := make(Ring, 0, end-start)
		for _, pt := range p.Points[start:end] {
			r = append(r, geo.Point{Lat: pt.Y, Lng: pt.X})
		}
		out = append(out, r)
	}
	return out
}

// decimateRing keeps every keep-th vertex, always retaining the first and
// last so the ring stays closed.
func decimateRing(r Ring, keep int) Ring {
	if keep <= 1 {
		return r
	}
	out := make(Ring, 0, len(r)/keep+2)
	for i := 0; i < len(r); i += keep {
		out = append(out, r[i])
	}
	if last := r[len(r)-1]; len(out) > 0 && out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

// DownloadShapefile fetches a zipped shapefile and extracts it into
// destDir, returning the path of the extracted .shp file.
func DownloadShapefile(url, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	zipPath := filepath.Join(destDir, "coastline.zip")
	log.Printf("Downloading coastline shapefile from %s...", url)
	if err := downloadFile(zipPath, url); err != nil {
		return "", fmt.Errorf("downloading shapefile: %w", err)
	}
	defer os.Remove(zipPath)

	log.Println("Extracting shapefile...")
	shpPath, err := unzipShapefile(zipPath, destDir)
	if err != nil {
		return "", fmt.Errorf("extracting shapefile: %w", err)
	}
	return shpPath, nil
}

func downloadFile(path, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// unzipShapefile extracts every file in the archive and returns the path
// of the first .shp member.
func unzipShapefile(src, dest string) (string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var shpPath string
	for _, f := range r.File {
		fpath := filepath.Join(dest, f.Name)

		// Guard against ZipSlip.
		if !filepath.HasPrefix(fpath, filepath.Clean(dest)+string(os.PathSeparator)) {
			return "", fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(fpath, os.ModePerm)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return "", err
		}

		outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return "", err
		}
		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return "", err
		}
		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()
		if err != nil {
			return "", err
		}

		if filepath.Ext(fpath) == ".shp" && shpPath == "" {
			shpPath = fpath
		}
	}
	if shpPath == "" {
		return "", fmt.Errorf("archive contains no .shp file")
	}
	return shpPath, nil
}
