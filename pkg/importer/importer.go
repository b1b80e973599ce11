// Package importer loads the catalog and photo tables from CSV files and
// writes the catalog back out in the same format.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/nikixstore/storefront/pkg/store"
)

// ProductHeader is the required column order of a catalog file. A trailing
// DropPriceColumn may follow it.
var ProductHeader = []string{
	"type", "name", "maker", "material", "season", "brand", "price",
	"article", "photo_url", "channel_url", "source_url", "drop_flag",
}

// DropPriceColumn is the optional last catalog column.
const DropPriceColumn = "drop_price"

// PhotoHeader is the required column order of a photo-links file.
var PhotoHeader = []string{"article", "photo2_url", "photo3_url", "photo4_url"}

// headerAliases maps column names used by older exports.
var headerAliases = map[string]string{
	"art":      "article",
	"anki_url": "source_url",
	"drop":     "drop_flag",
}

// ErrHeader is returned when a file does not start with the expected header.
var ErrHeader = errors.New("unexpected header")

// Mode selects how a catalog import treats existing products.
type Mode int

const (
	// Incremental upserts rows by article and keeps everything else.
	Incremental Mode = iota
	// Full deletes every product before inserting the file.
	Full
)

func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "incremental"
}

// Store is the catalog persistence used by imports.
type Store interface {
	UpsertProducts(ctx context.Context, products []models.Product) []store.RowError
	DeleteAllProducts(ctx context.Context) (int64, error)
	AllProducts(ctx context.Context) ([]models.Product, error)
	ReplacePhotoLinks(ctx context.Context, rows []models.PhotoLinks) ([]store.RowError, error)
}

// Rebuilder refreshes the read cache after the catalog changed.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// RowFailure is one rejected line of a file.
type RowFailure struct {
	Line    int
	Article string
	Reason  string
}

func (f RowFailure) String() string {
	if f.Article == "" {
		return fmt.Sprintf("строка %d: %s", f.Line, f.Reason)
	}
	return fmt.Sprintf("строка %d (%s): %s", f.Line, f.Article, f.Reason)
}

// Report describes one import batch.
type Report struct {
	BatchID  uuid.UUID
	Kind     string
	Mode     Mode
	Rows     int
	Imported int
	Deleted  int64
	Failures []RowFailure
	Took     time.Duration
}

// OK reports whether every row was imported.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// maxListedFailures caps the failures spelled out in an alert.
const maxListedFailures = 20

// Summary renders the operator message for the batch.
func (r Report) Summary() string {
	if r.OK() {
		return fmt.Sprintf("Загрузка таблицы успешно завершена: %d строк", r.Imported)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Загрузка таблицы завершена с ошибками (%s, партия %s): загружено %d из %d",
		r.Kind, r.BatchID, r.Imported, r.Rows)
	for i, f := range r.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "\n… и ещё %d", len(r.Failures)-maxListedFailures)
			break
		}
		b.WriteString("\n")
		b.WriteString(f.String())
	}
	return b.String()
}

// Importer runs catalog and photo imports.
type Importer struct {
	store   Store
	catalog Rebuilder
	alert   notify.Alerter
	log     *slog.Logger
}

// New returns an Importer. catalog may be nil when no read cache is in use.
func New(st Store, catalog Rebuilder, alert notify.Alerter, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{store: st, catalog: catalog, alert: alert, log: log}
}

// ImportProducts loads a catalog file. Bad rows are skipped and listed in the
// report; a report with failures is also sent as an alert. The read cache is
// rebuilt afterwards.
func (im *Importer) ImportProducts(ctx context.Context, r io.Reader, mode Mode) (Report, error) {
	start := time.Now()
	rep := Report{BatchID: uuid.New(), Kind: "products", Mode: mode}
	log := im.log.With("batch_id", rep.BatchID.String(), "mode", mode.String())

	rows, failures, err := ParseProducts(r)
	if err != nil {
		return rep, err
	}
	rep.Rows = len(rows) + len(failures)
	rep.Failures = failures

	if mode == Full {
		n, err := im.store.DeleteAllProducts(ctx)
		if err != nil {
			return rep, fmt.Errorf("delete products: %w", err)
		}
		rep.Deleted = n
	}

	products := make([]models.Product, len(rows))
	for i, row := range rows {
		products[i] = row.Product
	}
	rejected := im.store.UpsertProducts(ctx, products)
	for _, re := range rejected {
		line := 0
		if re.Row >= 1 && re.Row <= len(rows) {
			line = rows[re.Row-1].Line
		}
		rep.Failures = append(rep.Failures, RowFailure{Line: line, Article: re.Article, Reason: re.Err.Error()})
	}
	rep.Imported = len(rows) - len(rejected)
	rep.Took = time.Since(start)
	log.Info("catalog imported", "rows", rep.Rows, "imported", rep.Imported, "failed", len(rep.Failures), "took", rep.Took)

	if !rep.OK() {
		im.alert.Alert(ctx, rep.Summary())
	}
	if im.catalog != nil {
		if err := im.catalog.Rebuild(ctx); err != nil {
			return rep, fmt.Errorf("rebuild read cache: %w", err)
		}
	}
	return rep, nil
}

// ImportPhotos replaces every photo-links row with the file contents.
func (im *Importer) ImportPhotos(ctx context.Context, r io.Reader) (Report, error) {
	start := time.Now()
	rep := Report{BatchID: uuid.New(), Kind: "photos", Mode: Full}

	rows, lines, failures, err := ParsePhotos(r)
	if err != nil {
		return rep, err
	}
	rep.Rows = len(rows) + len(failures)
	rep.Failures = failures

	rejected, err := im.store.ReplacePhotoLinks(ctx, rows)
	if err != nil {
		return rep, err
	}
	for _, re := range rejected {
		line := 0
		if re.Row >= 1 && re.Row <= len(lines) {
			line = lines[re.Row-1]
		}
		rep.Failures = append(rep.Failures, RowFailure{Line: line, Article: re.Article, Reason: re.Err.Error()})
	}
	rep.Imported = len(rows) - len(rejected)
	rep.Took = time.Since(start)
	im.log.Info("photo links imported", "batch_id", rep.BatchID.String(), "rows", rep.Rows, "imported", rep.Imported)

	if !rep.OK() {
		im.alert.Alert(ctx, rep.Summary())
	}
	return rep, nil
}

// ExportProducts writes the whole catalog in import format, so that the file
// can be edited and loaded back.
func (im *Importer) ExportProducts(ctx context.Context, w io.Writer) (int, error) {
	products, err := im.store.AllProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}
	return len(products), WriteProducts(w, products)
}

// ProductRow is a parsed catalog line.
type ProductRow struct {
	Line    int
	Product models.Product
}

// ParseProducts reads a catalog file. It fails only when the header is wrong
// or the reader breaks; row problems come back as failures.
func ParseProducts(r io.Reader) ([]ProductRow, []RowFailure, error) {
	cr := newReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	withDropPrice := false
	switch {
	case equalHeader(header, ProductHeader):
	case len(header) == len(ProductHeader)+1 &&
		equalHeader(header[:len(ProductHeader)], ProductHeader) &&
		header[len(ProductHeader)] == DropPriceColumn:
		withDropPrice = true
	default:
		return nil, nil, fmt.Errorf("%w: got %s, want %s", ErrHeader,
			strings.Join(header, ","), strings.Join(ProductHeader, ","))
	}

	var (
		rows     []ProductRow
		failures []RowFailure
	)
	err = eachRecord(cr, len(header), func(line int, rec []string) {
		p, reason := parseProduct(rec, withDropPrice)
		if reason != "" {
			failures = append(failures, RowFailure{Line: line, Article: p.Article, Reason: reason})
			return
		}
		rows = append(rows, ProductRow{Line: line, Product: p})
	}, func(f RowFailure) { failures = append(failures, f) })
	return rows, failures, err
}

func parseProduct(rec []string, withDropPrice bool) (models.Product, string) {
	p := models.Product{
		Type:       rec[0],
		Name:       rec[1],
		Maker:      rec[2],
		Material:   strings.ToLower(strings.ReplaceAll(rec[3], ":", ", ")),
		Season:     strings.ReplaceAll(rec[4], ":", ", "),
		Brand:      rec[5],
		Article:    rec[7],
		PhotoURL:   rec[8],
		ChannelURL: rec[9],
		SourceURL:  rec[10],
	}
	if p.Article == "" {
		return p, "пустой артикул"
	}
	price, err := strconv.Atoi(rec[6])
	if err != nil || price < 0 {
		return p, fmt.Sprintf("неверная цена %q", rec[6])
	}
	p.Price = price
	if rec[11] == "1" {
		p.IsDrop = 1
	}
	if withDropPrice && rec[12] != "" {
		dp, err := strconv.Atoi(rec[12])
		if err != nil || dp < 0 {
			return p, fmt.Sprintf("неверная цена дропа %q", rec[12])
		}
		p.DropPrice = dp
	}
	return p, ""
}

// WriteProducts writes products in import format, turning the display
// separator back into ":".
func WriteProducts(w io.Writer, products []models.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), ProductHeader...), DropPriceColumn)); err != nil {
		return err
	}
	for _, p := range products {
		rec := []string{
			p.Type,
			p.Name,
			p.Maker,
			strings.ReplaceAll(p.Material, ", ", ":"),
			strings.ReplaceAll(p.Season, ", ", ":"),
			p.Brand,
			strconv.Itoa(p.Price),
			p.Article,
			p.PhotoURL,
			p.ChannelURL,
			p.SourceURL,
			strconv.Itoa(p.IsDrop),
			strconv.Itoa(p.DropPrice),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParsePhotos reads a photo-links file. lines[i] is the file line of rows[i].
func ParsePhotos(r io.Reader) (rows []models.PhotoLinks, lines []int, failures []RowFailure, err error) {
	cr := newReader(r)
	header, err := readHeader(cr)
	if err != nil {
		return nil, nil, nil, err
	}
	if !equalHeader(header, PhotoHeader) {
		return nil, nil, nil, fmt.Errorf("%w: got %s, want %s", ErrHeader,
			strings.Join(header, ","), strings.Join(PhotoHeader, ","))
	}
	err = eachRecord(cr, len(header), func(line int, rec []string) {
		if rec[0] == "" {
			failures = append(failures, RowFailure{Line: line, Reason: "пустой артикул"})
			return
		}
		rows = append(rows, models.PhotoLinks{Article: rec[0], Photo2: rec[1], Photo3: rec[2], Photo4: rec[3]})
		lines = append(lines, line)
	}, func(f RowFailure) { failures = append(failures, f) })
	return rows, lines, failures, err
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func readHeader(cr *csv.Reader) ([]string, error) {
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if alias, ok := headerAliases[h]; ok {
			h = alias
		}
		header[i] = h
	}
	return header, nil
}

func equalHeader(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// eachRecord calls row for every well-formed record with trimmed values.
// Malformed lines are reported through fail and skipped.
func eachRecord(cr *csv.Reader, width int, row func(line int, rec []string), fail func(RowFailure)) error {
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			fail(RowFailure{Line: perr.Line, Reason: perr.Err.Error()})
			continue
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		if len(rec) != width {
			fail(RowFailure{Line: line, Reason: fmt.Sprintf("%d столбцов вместо %d", len(rec), width)})
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		row(line, rec)
	}
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
