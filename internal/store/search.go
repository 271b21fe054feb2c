package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wesm/chatvault/internal/search"
)

// SortOrder selects how search/browse results are ordered.
type SortOrder string

const (
	// SortRelevance orders by rank ascending (more negative = better),
	// breaking ties by last occurrence descending.
	SortRelevance SortOrder = "relevance"
	// SortLastOccurrence orders by the newest matching message, newest
	// first. This is the default.
	SortLastOccurrence SortOrder = "last_occurrence"
	// SortOccurrences orders by total occurrence count descending.
	SortOccurrences SortOrder = "occurrences"
	// SortTitleAsc and SortTitleDesc order by title, case-insensitively.
	SortTitleAsc  SortOrder = "title_asc"
	SortTitleDesc SortOrder = "title_desc"
)

// titleBoost is subtracted from the rank when the conversation title
// contains the raw query, so title matches sort ahead of body-only
// matches regardless of occurrence-count differences up to this margin.
const titleBoost = 1000

// Pagination limits. Limits are clamped to [1, maxLimit]; offsets to >= 0.
const (
	maxLimit           = 100
	defaultSearchLimit = 20
	defaultBrowseLimit = 50
	snippetsPerResult  = 3
	snippetTokens      = 10
)

// SearchOptions narrows and shapes a search or browse call. Zero values
// mean "no filter" / defaults. DateFrom/DateTo are inclusive epoch-ms
// bounds applied to message timestamps in query mode and to conversation
// timestamps in browse mode.
type SearchOptions struct {
	Source   string
	DateFrom int64
	DateTo   int64
	// Limit is the page size, capped at 100. Non-positive means the mode
	// default (20 for search, 50 for browse), not a minimum of 1.
	Limit int
	// Offset below 0 is treated as 0; there is no upper bound.
	Offset int
	Sort   SortOrder

	// HighlightStart/End wrap matched terms inside snippets.
	// Defaults to "[" and "]".
	HighlightStart string
	HighlightEnd   string
}

// SearchRow is one conversation-level result.
type SearchRow struct {
	ConversationID string
	Title          string
	Source         string
	CreatedAt      int64
	// LastOccurrence is the newest matching message's timestamp. In
	// browse mode it is the newest message's timestamp.
	LastOccurrence int64
	// OccurrenceCount is the total literal occurrence count across
	// matching messages. Browse mode repurposes it as the current
	// message count (recomputed via join, not the cached column).
	OccurrenceCount int
	// MessageMatchCount is the number of distinct matching messages.
	MessageMatchCount int
	// Rank is the relevance score; lower (more negative) ranks first.
	Rank int
	// FirstMatchMessageID is the earliest-by-time matching message,
	// for scrolling straight to it.
	FirstMatchMessageID string
	// Snippets holds up to three highlighted excerpts, newest matches
	// first. Empty in browse mode.
	Snippets []string
}

// SearchResult is the paginated answer to a search or browse call.
type SearchResult struct {
	Rows []SearchRow
	// TotalMatches is the number of distinct matching conversations
	// across all pages.
	TotalMatches int
	// TotalOccurrences is the total raw occurrence count across all
	// matches (query mode only).
	TotalOccurrences int
}

// Search answers a free-text query with ranked, grouped, paginated
// results. An empty or whitespace-only query switches to browse mode. A
// query that normalizes to no tokens (punctuation only) returns an empty
// result set, not an error.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return s.BrowseConversations(ctx, opts)
	}

	match := search.MatchExpression(query)
	if match == "" {
		return &SearchResult{Rows: []SearchRow{}}, nil
	}

	var result *SearchResult
	err := s.do(ctx, func() error {
		var err error
		result, err = s.searchLocked(ctx, query, match, opts)
		return err
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "search", Err: err}
	}
	return result, nil
}

// convAgg accumulates per-conversation match state while grouping.
type convAgg struct {
	row            SearchRow
	firstMatchTime int64
}

func (s *Store) searchLocked(ctx context.Context, raw, match string, opts SearchOptions) (*SearchResult, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT messages_fts.conversation_id, messages_fts.message_id,
		       m.content, m.created_at,
		       c.title, c.source, c.created_at
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.message_id
		JOIN conversations c ON c.id = messages_fts.conversation_id
		WHERE messages_fts MATCH ?
	`)
	args := []interface{}{match}
	if opts.Source != "" {
		sb.WriteString(" AND c.source = ?")
		args = append(args, opts.Source)
	}
	if opts.DateFrom != 0 {
		sb.WriteString(" AND m.created_at >= ?")
		args = append(args, opts.DateFrom)
	}
	if opts.DateTo != 0 {
		sb.WriteString(" AND m.created_at <= ?")
		args = append(args, opts.DateTo)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("match query: %w", err)
	}
	defer rows.Close()

	groups := make(map[string]*convAgg)
	var order []string
	totalOccurrences := 0

	for rows.Next() {
		var (
			convID, msgID, content string
			msgCreatedAt           int64
			title, source          string
			convCreatedAt          int64
		)
		if err := rows.Scan(&convID, &msgID, &content, &msgCreatedAt,
			&title, &source, &convCreatedAt); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}

		// Ranking weight is the literal substring count, computed
		// independently of the prefix-token match that selected this row.
		occ := search.CountOccurrences(content, raw)
		totalOccurrences += occ

		agg, ok := groups[convID]
		if !ok {
			agg = &convAgg{row: SearchRow{
				ConversationID: convID,
				Title:          title,
				Source:         source,
				CreatedAt:      convCreatedAt,
			}}
			groups[convID] = agg
			order = append(order, convID)
		}
		agg.row.OccurrenceCount += occ
		agg.row.MessageMatchCount++
		if msgCreatedAt > agg.row.LastOccurrence {
			agg.row.LastOccurrence = msgCreatedAt
		}
		if agg.row.FirstMatchMessageID == "" ||
			msgCreatedAt < agg.firstMatchTime ||
			(msgCreatedAt == agg.firstMatchTime && msgID < agg.row.FirstMatchMessageID) {
			agg.firstMatchTime = msgCreatedAt
			agg.row.FirstMatchMessageID = msgID
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}

	results := make([]SearchRow, 0, len(order))
	for _, convID := range order {
		agg := groups[convID]
		agg.row.Rank = -agg.row.OccurrenceCount
		if search.ContainsFold(agg.row.Title, raw) {
			agg.row.Rank -= titleBoost
		}
		results = append(results, agg.row)
	}

	sortRows(results, opts.Sort)

	total := len(results)
	page := paginate(results, clampLimit(opts.Limit, defaultSearchLimit), clampOffset(opts.Offset))

	for i := range page {
		snippets, err := s.fetchSnippets(ctx, match, page[i].ConversationID, opts)
		if err != nil {
			return nil, err
		}
		page[i].Snippets = snippets
	}

	return &SearchResult{
		Rows:             page,
		TotalMatches:     total,
		TotalOccurrences: totalOccurrences,
	}, nil
}

// fetchSnippets asks the index for highlighted excerpts from the
// conversation's most recent matching messages. The date window is
// applied here too, so snippets only come from the messages that
// contributed to the row's counts (the source filter is implied by the
// conversation). Empty or whitespace-only snippets are discarded.
func (s *Store) fetchSnippets(ctx context.Context, match, conversationID string, opts SearchOptions) ([]string, error) {
	start := opts.HighlightStart
	end := opts.HighlightEnd
	if start == "" && end == "" {
		start, end = "[", "]"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `
		SELECT snippet(messages_fts, 0, ?, ?, '…', %d)
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.message_id
		WHERE messages_fts MATCH ? AND messages_fts.conversation_id = ?
	`, snippetTokens)
	args := []interface{}{start, end, match, conversationID}
	if opts.DateFrom != 0 {
		sb.WriteString(" AND m.created_at >= ?")
		args = append(args, opts.DateFrom)
	}
	if opts.DateTo != 0 {
		sb.WriteString(" AND m.created_at <= ?")
		args = append(args, opts.DateTo)
	}
	fmt.Fprintf(&sb, " ORDER BY m.created_at DESC LIMIT %d", snippetsPerResult)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("snippets for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var snippets []string
	for rows.Next() {
		var snip string
		if err := rows.Scan(&snip); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		if strings.TrimSpace(snip) != "" {
			snippets = append(snippets, snip)
		}
	}
	return snippets, rows.Err()
}

// BrowseConversations lists all conversations without matching text:
// OccurrenceCount carries the current message count, LastOccurrence the
// newest message timestamp, and there are no snippets. Date filters apply
// to the conversation timestamp.
func (s *Store) BrowseConversations(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	var result *SearchResult
	err := s.do(ctx, func() error {
		var err error
		result, err = s.browseLocked(ctx, opts)
		return err
	})
	if err != nil {
		return nil, &Error{Kind: ErrKind(err), Op: "browse conversations", Err: err}
	}
	return result, nil
}

func (s *Store) browseLocked(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	var conditions []string
	var args []interface{}
	if opts.Source != "" {
		conditions = append(conditions, "c.source = ?")
		args = append(args, opts.Source)
	}
	if opts.DateFrom != 0 {
		conditions = append(conditions, "c.created_at >= ?")
		args = append(args, opts.DateFrom)
	}
	if opts.DateTo != 0 {
		conditions = append(conditions, "c.created_at <= ?")
		args = append(args, opts.DateTo)
	}
	whereClause := "1=1"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM conversations c WHERE %s", whereClause)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	orderBy := browseOrderClause(opts.Sort)
	query := fmt.Sprintf(`
		SELECT c.id, c.title, c.source, c.created_at,
		       COUNT(m.id) AS message_count,
		       COALESCE(MAX(m.created_at), 0) AS last_activity
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE %s
		GROUP BY c.id, c.title, c.source, c.created_at
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, whereClause, orderBy)
	args = append(args, clampLimit(opts.Limit, defaultBrowseLimit), clampOffset(opts.Offset))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	results := []SearchRow{}
	for rows.Next() {
		var row SearchRow
		if err := rows.Scan(&row.ConversationID, &row.Title, &row.Source,
			&row.CreatedAt, &row.OccurrenceCount, &row.LastOccurrence); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return &SearchResult{Rows: results, TotalMatches: total}, nil
}

// browseOrderClause maps a SortOrder onto SQL for browse mode. Relevance
// has no meaning without a query, so it falls back to last activity. The
// conversation id is always the final tie-break for determinism.
func browseOrderClause(order SortOrder) string {
	switch order {
	case SortOccurrences:
		return "message_count DESC, c.id ASC"
	case SortTitleAsc:
		return "LOWER(c.title) ASC, c.id ASC"
	case SortTitleDesc:
		return "LOWER(c.title) DESC, c.id ASC"
	default:
		return "last_activity DESC, c.id ASC"
	}
}

// sortRows orders grouped search results. Every order ends with the
// conversation id tie-break so pagination is stable.
func sortRows(rows []SearchRow, order SortOrder) {
	less := func(a, b *SearchRow) bool {
		switch order {
		case SortRelevance:
			if a.Rank != b.Rank {
				return a.Rank < b.Rank
			}
			if a.LastOccurrence != b.LastOccurrence {
				return a.LastOccurrence > b.LastOccurrence
			}
		case SortOccurrences:
			if a.OccurrenceCount != b.OccurrenceCount {
				return a.OccurrenceCount > b.OccurrenceCount
			}
		case SortTitleAsc:
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
		case SortTitleDesc:
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at > bt
			}
		default: // SortLastOccurrence
			if a.LastOccurrence != b.LastOccurrence {
				return a.LastOccurrence > b.LastOccurrence
			}
		}
		return a.ConversationID < b.ConversationID
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(&rows[i], &rows[j]) })
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func paginate(rows []SearchRow, limit, offset int) []SearchRow {
	if offset >= len(rows) {
		return []SearchRow{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	// Copy so callers can't alias the shared backing array.
	page := make([]SearchRow, end-offset)
	copy(page, rows[offset:end])
	return page
}
