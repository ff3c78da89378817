package justdial

import (
	"context"
	"fmt"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

// listingAPIPath identifies the paginated listing responses worth parsing.
const listingAPIPath = "/api/resultsPageListing"

// hookScript patches fetch and XMLHttpRequest so every listing API response
// is merged into a page-local, first-write-wins map. Malformed bodies are
// ignored. Installing twice is a no-op.
var hookScript = fmt.Sprintf(`(function() {
	if (window.__jdHookInstalled) return true;
	window.__jdHookInstalled = true;
	window.__jdPairs = window.__jdPairs || {};
	window.__jdOrder = window.__jdOrder || [];

	function merge(data) {
		try {
			var res = data && data.results;
			var cols = (res && res.columns) || [];
			var di = cols.indexOf(%[1]q), si = cols.indexOf(%[2]q);
			if (di === -1 || si === -1) return;
			(res.data || []).forEach(function(row) {
				var id = row[di], tok = row[si];
				if (id === undefined || id === null || id === "" || tok === undefined || tok === null || tok === "") return;
				id = String(id);
				if (Object.prototype.hasOwnProperty.call(window.__jdPairs, id)) return;
				window.__jdPairs[id] = String(tok);
				window.__jdOrder.push(id);
			});
		} catch (e) {}
	}

	var origFetch = window.fetch;
	if (origFetch) {
		window.fetch = function() {
			var args = arguments;
			return origFetch.apply(this, args).then(function(response) {
				try {
					var target = args[0] && args[0].url ? args[0].url : String(args[0] || "");
					if (target.indexOf(%[3]q) !== -1) {
						response.clone().json().then(merge).catch(function() {});
					}
				} catch (e) {}
				return response;
			});
		};
	}

	var origOpen = XMLHttpRequest.prototype.open;
	XMLHttpRequest.prototype.open = function(method, url) {
		try {
			if (url && String(url).indexOf(%[3]q) !== -1) {
				this.addEventListener("load", function() {
					try { merge(JSON.parse(this.responseText || "{}")); } catch (e) {}
				});
			}
		} catch (e) {}
		return origOpen.apply(this, arguments);
	};

	window.__jdDrain = function() {
		return window.__jdOrder.map(function(id) {
			return {docid: id, scd: window.__jdPairs[id]};
		});
	};
	return true;
})()`, idColumn, tokenColumn, listingAPIPath)

const drainScript = `(window.__jdDrain ? window.__jdDrain() : [])`

// PairStore accumulates collected pairs keyed by item id. The first token
// seen for an id wins; later observations of the same id are ignored.
// A PairStore is owned by one page and is not safe for concurrent use.
type PairStore struct {
	tokens map[string]string
	order  []string
}

func NewPairStore() *PairStore {
	return &PairStore{tokens: make(map[string]string)}
}

// Merge adds unseen pairs and returns how many ids were new.
func (s *PairStore) Merge(pairs []models.CollectedPair) int {
	added := 0
	for _, p := range pairs {
		if p.ItemID == "" || p.SecondaryToken == "" {
			continue
		}
		if _, ok := s.tokens[p.ItemID]; ok {
			continue
		}
		s.tokens[p.ItemID] = p.SecondaryToken
		s.order = append(s.order, p.ItemID)
		added++
	}
	return added
}

// Pairs returns a snapshot in first-arrival order.
func (s *PairStore) Pairs() []models.CollectedPair {
	out := make([]models.CollectedPair, len(s.order))
	for i, id := range s.order {
		out[i] = models.CollectedPair{ItemID: id, SecondaryToken: s.tokens[id]}
	}
	return out
}

func (s *PairStore) Len() int { return len(s.order) }

// Interceptor captures (docid, scd) pairs from the listing page's network
// traffic and its first-paint payload.
type Interceptor struct {
	session Session
	store   *PairStore
	logger  *utils.Logger
}

func NewInterceptor(session Session, logger *utils.Logger) *Interceptor {
	return &Interceptor{session: session, store: NewPairStore(), logger: logger}
}

// Store exposes the page-scoped store.
func (i *Interceptor) Store() *PairStore { return i.store }

// Install patches the page's request paths and seeds the store from the
// data island. It may be called again safely.
func (i *Interceptor) Install(ctx context.Context, island NextData) error {
	var ok bool
	if err := i.session.Evaluate(ctx, hookScript, &ok); err != nil {
		return fmt.Errorf("install hook: %w", err)
	}
	seeded := i.store.Merge(island.SeedPairs())
	i.logger.Debug("[interceptor] Hook installed, seeded %d pairs from first-paint data", seeded)
	return nil
}

// Drain returns the pairs accumulated so far. It never removes anything,
// so it can be called repeatedly; on a read error the last known snapshot is
// returned together with the error.
func (i *Interceptor) Drain(ctx context.Context) ([]models.CollectedPair, error) {
	var observed []models.CollectedPair
	if err := i.session.Evaluate(ctx, drainScript, &observed); err != nil {
		return i.store.Pairs(), fmt.Errorf("drain: %w", err)
	}
	if added := i.store.Merge(observed); added > 0 {
		i.logger.Debug("[interceptor] %d new pairs observed", added)
	}
	return i.store.Pairs(), nil
}
