// Package service implements the resource index sourcer: paginate the
// provider index, resolve embedded references, fetch what the store has not
// seen, and notify the dispatcher of every insert
package service

import (
	"context"
	"net/url"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"fieldday/internal/core/hashing"
	"fieldday/internal/core/jsonref"
	"fieldday/internal/core/routing"
	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/platform/logger"
	dispatchdom "fieldday/internal/services/dispatch/domain"
	docdom "fieldday/internal/services/documents/domain"
	"fieldday/internal/services/sourcer/domain"
)

// Config holds sourcer tuning
type Config struct {
	// MaxItems bounds how many index items one run considers; 0 = drain
	MaxItems int
}

// Service implements domain.RunnerPort
type Service struct {
	DB    repokit.TxRunner
	Docs  repokit.Binder[docdom.StorageRepo]
	Fetch domain.Fetcher
	Queue dispatchdom.QueuePort
	Cfg   Config
}

// New constructs the sourcer service
func New(
	db repokit.TxRunner,
	docs repokit.Binder[docdom.StorageRepo],
	fetch domain.Fetcher,
	queue dispatchdom.QueuePort,
	cfg Config,
) *Service {
	if db == nil {
		panic("sourcer.Service requires a non nil TxRunner")
	}
	if docs == nil {
		panic("sourcer.Service requires a non nil documents binder")
	}
	if fetch == nil {
		panic("sourcer.Service requires a non nil Fetcher")
	}
	if queue == nil {
		panic("sourcer.Service requires a non nil queue")
	}
	return &Service{DB: db, Docs: docs, Fetch: fetch, Queue: queue, Cfg: cfg}
}

// indexMeta is the pagination header every provider index page carries
type indexMeta struct {
	Count     int `json:"count"`
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
}

// SourceIndex walks every page of the index, inserting and announcing each
// unseen child document. One failed child fetch is logged and skipped; most
// documents are independent, so the walk continues. A cancelled ctx stops the
// walk and never inserts the in-flight document.
func (s *Service) SourceIndex(ctx context.Context, req domain.Request) (int, error) {
	corr := uuid.NewString()
	log := logger.C(logger.WithPipeline(ctx, corr, corr))

	indexHash := hashing.HashText(req.IndexURL)
	inserted, considered := 0, 0

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}

		pageURL, err := withPage(req.IndexURL, page)
		if err != nil {
			return inserted, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "sourcer: bad index url")
		}
		body, _, err := s.Fetch.Fetch(ctx, pageURL)
		if err != nil {
			// without the page there is nothing to iterate; stop here
			return inserted, perr.Wrapf(err, perr.CodeOf(err), "sourcer: index page %d", page)
		}

		var meta indexMeta
		if err := json.Unmarshal(body, &meta); err != nil {
			return inserted, perr.Wrap(err, perr.ErrorCodeJSON, "sourcer: index page not json")
		}

		for _, ref := range jsonref.ExtractRefs(body) {
			if s.Cfg.MaxItems > 0 && considered >= s.Cfg.MaxItems {
				log.Info().Int("max_items", s.Cfg.MaxItems).Int("inserted", inserted).
					Msg("sourcer: item cap reached")
				return inserted, nil
			}
			considered++

			n, err := s.sourceChild(ctx, req, ref, &indexHash, corr)
			if err != nil {
				if ctx.Err() != nil {
					return inserted, ctx.Err()
				}
				log.Warn().Str("ref", ref.String()).Err(err).Msg("sourcer: child failed; continuing")
				continue
			}
			inserted += n
		}

		if meta.PageCount <= page {
			break
		}
	}

	log.Info().Str("index", req.IndexURL).Int("considered", considered).Int("inserted", inserted).
		Msg("sourcer: index drained")
	return inserted, nil
}

// SourceDocument fetches and stores one document by URL with no parent,
// bypassing the index walk. Dispatch uses it to request a dependency that
// has not been sourced yet.
func (s *Service) SourceDocument(ctx context.Context, req domain.Request, rawURL string) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return 0, perr.InvalidArgf("sourcer: not an absolute document url: %q", rawURL)
	}
	corr := uuid.NewString()
	return s.sourceChild(logger.WithPipeline(ctx, corr, corr), req, u, nil, corr)
}

// sourceChild fetches and stores one referenced document unless its URL
// digest is already present; returns 1 when a document was inserted
func (s *Service) sourceChild(
	ctx context.Context,
	req domain.Request,
	ref *url.URL,
	parentID *string,
	corr string,
) (int, error) {
	sourceURI := ref.String()
	id := hashing.HashText(sourceURI)

	exists, err := s.Docs.Bind(s.DB).Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, nil
	}

	body, finalURL, err := s.Fetch.Fetch(ctx, sourceURI)
	if err != nil {
		return 0, err
	}

	rk, err := routing.Key(string(req.Provider), sourceURI)
	if err != nil {
		return 0, err
	}

	doc := docdom.RawDocument{
		ID:         id,
		ParentID:   parentID,
		SourceURI:  sourceURI,
		Payload:    string(body),
		Provider:   req.Provider,
		Sport:      req.Sport,
		DocType:    req.DocType,
		SeasonYear: req.SeasonYear,
		RoutingKey: rk,
	}
	if finalURL != "" && finalURL != sourceURI {
		doc.OriginalURI = &finalURL
	}

	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Docs.Bind(q).Insert(ctx, doc)
	})
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeDuplicateKey) {
			return 0, nil // concurrent sourcer won the insert
		}
		return 0, err
	}

	if err := s.announce(ctx, doc, corr); err != nil {
		// stored but unannounced; a re-run of the index will not help, so
		// make the miss loud for the operator
		logger.C(ctx).Error().Str("document_id", doc.ID).Err(err).
			Msg("sourcer: document stored but notification enqueue failed")
	}
	return 1, nil
}

// announce enqueues the DocumentCreated notification with attempt count zero
func (s *Service) announce(ctx context.Context, doc docdom.RawDocument, corr string) error {
	cmd := dispatchdom.Command{
		DocumentID:    doc.ID,
		ParentID:      doc.ParentID,
		Ref:           doc.SourceURI,
		SourceRef:     doc.SourceURI,
		SourceURLHash: doc.ID,
		Payload:       []byte(doc.Payload),
		Provider:      doc.Provider,
		Sport:         doc.Sport,
		DocType:       doc.DocType,
		SeasonYear:    doc.SeasonYear,
		RoutingKey:    doc.RoutingKey,
		CorrelationID: corr,
		CausationID:   corr,
		Attempt:       0,
	}
	if doc.OriginalURI != nil {
		cmd.SourceRef = *doc.OriginalURI
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "sourcer: marshal notification")
	}
	return s.Queue.Enqueue(ctx, dispatchdom.KindDocumentCreated, b)
}

// withPage returns raw with the page query parameter set; page 1 leaves the
// index URL untouched so the first request matches what the operator supplied
func withPage(raw string, page int) (string, error) {
	if page <= 1 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
