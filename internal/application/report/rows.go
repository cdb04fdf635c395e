package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/eshaffer321/preorder-gather/internal/domain/aggregator"
)

// Column headers of each table.
var (
	SummaryHeader  = []string{"Designer", "Room", "Item", "Quantity", "In Carts"}
	CustomerHeader = []string{"Pre-Order", "Designer", "Item", "Quantity"}
	IndexHeader    = []string{"Customer", "Orders", "Link"}
)

// PreOrderMark flags reportable rows in the customer table.
const PreOrderMark = "✓"

// DesignerRooms maps a designer name to its room number.
type DesignerRooms map[string]string

// Room returns the designer's room, or "" when unknown.
func (r DesignerRooms) Room(designer string) string {
	return r[strings.TrimSpace(designer)]
}

// ParseDesignerRooms reads (name, room, notes) rows. The first row is a
// header and rows without a name are skipped.
func ParseDesignerRooms(rows [][]string) DesignerRooms {
	rooms := make(DesignerRooms, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		room := ""
		if len(row) > 1 {
			room = strings.TrimSpace(row[1])
		}
		rooms[name] = room
	}
	return rooms
}

// NewDesigners returns designers of items that the room map does not know
// yet, in first-seen order.
func NewDesigners(rooms DesignerRooms, items []*aggregator.Item) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		name := strings.TrimSpace(item.Designer)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := rooms[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

type summaryRow struct {
	designer string
	room     string
	roomNum  int
	hasRoom  bool
	item     string
	quantity int
	inCarts  int
}

// BuildSummaryRows renders the per-product summary: items in the target
// category set with any firm or in-cart quantity, sorted by room number
// descending and then item name ascending. A blank row separates rooms.
// Items without a numeric room sort last.
func BuildSummaryRows(items []*aggregator.Item, rooms DesignerRooms) [][]string {
	var rows []summaryRow
	for _, item := range items {
		if !item.InCategory || (item.Quantity == 0 && item.InCarts == 0) {
			continue
		}
		room := rooms.Room(item.Designer)
		n, err := strconv.Atoi(room)
		rows = append(rows, summaryRow{
			designer: item.Designer,
			room:     room,
			roomNum:  n,
			hasRoom:  err == nil,
			item:     item.Name,
			quantity: item.Quantity,
			inCarts:  item.InCarts,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.hasRoom != b.hasRoom {
			return a.hasRoom
		}
		if a.roomNum != b.roomNum {
			return a.roomNum > b.roomNum
		}
		if a.room != b.room {
			return a.room < b.room
		}
		return a.item < b.item
	})

	out := [][]string{SummaryHeader}
	for i, r := range rows {
		if i > 0 && rows[i-1].room != r.room {
			out = append(out, []string{})
		}
		out = append(out, []string{r.designer, r.room, r.item, strconv.Itoa(r.quantity), strconv.Itoa(r.inCarts)})
	}
	return out
}

// BuildCustomerRows renders one customer's detail table. Quantities of the
// same item across orders are summed; reportable items (name starts with
// prefix) come first, then by item name.
func BuildCustomerRows(h *aggregator.History, prefix string) [][]string {
	type line struct {
		designer string
		quantity int
	}
	lines := make(map[string]*line)
	var names []string
	for _, summary := range h.Orders {
		for _, item := range summary.Items {
			l, ok := lines[item.Name]
			if !ok {
				l = &line{designer: item.Designer}
				lines[item.Name] = l
				names = append(names, item.Name)
			}
			l.quantity += item.Quantity
			if l.designer == "" {
				l.designer = item.Designer
			}
		}
	}

	reportable := func(name string) bool { return prefix != "" && strings.HasPrefix(name, prefix) }
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := reportable(names[i]), reportable(names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})

	out := [][]string{CustomerHeader}
	for _, name := range names {
		mark := ""
		if reportable(name) {
			mark = PreOrderMark
		}
		out = append(out, []string{mark, lines[name].designer, name, strconv.Itoa(lines[name].quantity)})
	}
	return out
}

// BuildIndexRows renders the rollup index linking to each customer sheet.
// sheetIDs maps a customer name to its sheet id; customers without one get
// no link.
func BuildIndexRows(customers []string, histories map[string]*aggregator.History, sheetIDs map[string]int64) [][]string {
	out := [][]string{IndexHeader}
	for _, name := range customers {
		h, ok := histories[name]
		if !ok {
			continue
		}
		link := ""
		if id, ok := sheetIDs[name]; ok {
			link = fmt.Sprintf(`=HYPERLINK("#gid=%d", "Open")`, id)
		}
		out = append(out, []string{name, strconv.Itoa(len(h.Orders)), link})
	}
	return out
}

// maxTitleLen is the longest sheet title the Sheets API accepts, in runes.
const maxTitleLen = 100

// SheetTitle turns a customer name into a valid sheet title.
func SheetTitle(prefix, name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', ':', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Unknown Customer"
	}
	if prefix != "" {
		clean = prefix + " - " + clean
	}
	return truncateTitle(clean, maxTitleLen)
}

func truncateTitle(title string, n int) string {
	if r := []rune(title); len(r) > n {
		return string(r[:n])
	}
	return title
}

// SheetTitles assigns every customer a distinct sheet title. Names that
// clean or truncate to a title already taken get a " (2)", " (3)", ...
// suffix, in customer order. Titles compare case-insensitively, as sheet
// titles do, and never reuse one of reserved.
func SheetTitles(prefix string, customers []string, reserved ...string) map[string]string {
	taken := make(map[string]bool, len(customers)+len(reserved))
	for _, title := range reserved {
		taken[strings.ToLower(title)] = true
	}

	titles := make(map[string]string, len(customers))
	for _, name := range customers {
		if _, ok := titles[name]; ok {
			continue
		}
		base := SheetTitle(prefix, name)
		title := base
		for n := 2; taken[strings.ToLower(title)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			title = truncateTitle(base, maxTitleLen-len(suffix)) + suffix
		}
		taken[strings.ToLower(title)] = true
		titles[name] = title
	}
	return titles
}
