package nav

const (
	MarqueeGap   = " --- "
	MarqueeEvery = 15 // ticks per one character shift
)

// Marquee scrolls text longer than window width, wrapping around a gap.
// Works on runes, file names are UTF-8.
type Marquee struct {
	text    string
	runes   []rune // text + gap
	width   int
	offset  int
	counter int
}

func NewMarquee(width int) Marquee { return Marquee{width: width} }

// SetText resets scroll position only when text actually changed.
func (m *Marquee) SetText(s string) {
	if s == m.text && m.runes != nil {
		return
	}
	m.text = s
	m.runes = []rune(s + MarqueeGap)
	m.offset = 0
	m.counter = 0
}

func (m *Marquee) SetWidth(w int) {
	if w != m.width {
		m.width = w
		m.offset, m.counter = 0, 0
	}
}

func (m *Marquee) Text() string { return m.text }
func (m *Marquee) Offset() int  { return m.offset }

func (m *Marquee) long() bool { return len(m.runes)-len([]rune(MarqueeGap)) > m.width }

// Tick advances one frame, offset moves every MarqueeEvery ticks.
// Short text stays at offset 0.
func (m *Marquee) Tick() {
	if !m.long() {
		m.offset, m.counter = 0, 0
		return
	}
	m.counter++
	if m.counter >= MarqueeEvery {
		m.counter = 0
		m.offset = (m.offset + 1) % len(m.runes)
	}
}

// View returns width characters visible now.
func (m *Marquee) View() string {
	if !m.long() {
		return m.text
	}
	out := make([]rune, 0, m.width)
	for i := 0; i < m.width; i++ {
		out = append(out, m.runes[(m.offset+i)%len(m.runes)])
	}
	return string(out)
}
