package authority

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"arbor/internal/domain"
	"arbor/internal/ports"
)

// TruncatedChapters is how many chapters a truncated book insert keeps.
const TruncatedChapters = 3

// Chapter is one section of a book file.
type Chapter struct {
	Title string
	Text  string
}

// ParseBook splits text into chapters at lines beginning with "CHAPTER".
// Text before the first chapter heading is dropped.
func ParseBook(text string) []Chapter {
	var chapters []Chapter
	var cur *Chapter
	var body strings.Builder

	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(body.String())
			chapters = append(chapters, *cur)
		}
		body.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "CHAPTER") {
			flush()
			cur = &Chapter{Title: strings.TrimSpace(line)}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return chapters
}

func (s *Service) InsertBook(ctx context.Context, req ports.InsertBookRequest) (*ports.InsertBookResponse, error) {
	text, err := s.readBook(req.BookName)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read book: %w", err)
	}

	res := &ports.InsertBookResponse{}
	base, err := s.run(ctx, "insert book", func(st Store, who *Principal) error {
		if text == "" {
			return reject("unknown book %q", req.BookName)
		}
		parent, err := mustNode(ctx, st, req.NodeID)
		if err != nil {
			return err
		}
		if !canInsert(who, parent) {
			return deny("not authorized to insert under %s", parent.ID)
		}

		chapters := ParseBook(text)
		if req.Truncated && len(chapters) > TruncatedChapters {
			chapters = chapters[:TruncatedChapters]
		}

		siblings, err := st.Children(ctx, parent.ID)
		if err != nil {
			return err
		}
		book := s.newNode(who, req.BookName, TypeBook)
		if err := renumber(ctx, st, parent.ID, append([]*domain.Node{book}, siblings...)); err != nil {
			return err
		}
		nodes := make([]*domain.Node, 0, len(chapters))
		for _, ch := range chapters {
			n := s.newNode(who, ch.Title, domain.DefaultNodeType)
			n.Content = ch.Text
			nodes = append(nodes, n)
		}
		if err := renumber(ctx, st, book.ID, nodes); err != nil {
			return err
		}
		res.NewNode = book
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.ResponseBase = base
	return res, nil
}

func (s *Service) readBook(name string) (string, error) {
	if s.booksDir == "" || name == "" || strings.ContainsAny(name, `/\`) {
		return "", fs.ErrNotExist
	}
	data, err := os.ReadFile(filepath.Join(s.booksDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
