package laminar

import "strconv"

// Parser is a hand-rolled recursive-descent parser over the token stream
// produced by Lex. It is driven directly rather than through participle's
// declarative struct-tag grammar engine: the grammar needs lookahead-based
// disambiguation (quantifier vs. multiplicity prefix, conditional-expression
// vs. implies) and precedence climbing that a struct-tag grammar cannot
// express cleanly. See DESIGN.md for the full rationale.
type Parser struct {
	toks     []Token
	pos      int
	diags    *Diagnostics
	filename string
}

// Parse lexes and parses a single module source file, collecting lexical
// and syntactic diagnostics together. Parsing never aborts early: on a
// malformed construct it records a diagnostic and resynchronizes at the
// nearest recovery point (§4.2), so callers always get a best-effort AST.
func Parse(filename, src string) (*Module, *Diagnostics) {
	toks, lexDiags := Lex(filename, src)

	p := &Parser{toks: toks, diags: &Diagnostics{}, filename: filename}
	p.diags.Merge(lexDiags)

	mod := p.parseModule()

	return mod, p.diags
}

// =============================================================================
// Token-stream plumbing
// =============================================================================

func (p *Parser) cur() Token { return p.toks[p.pos] }

func (p *Parser) at(i int) Token {
	if i < 0 {
		i = 0
	}
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[i]
}

func (p *Parser) peek(n int) Token { return p.at(p.pos + n) }

func (p *Parser) atEOF() bool { return p.cur().Kind == TEOF }

func (p *Parser) advance() Token {
	t := p.cur()
	if !p.atEOF() {
		p.pos++
	}

	return t
}

func (p *Parser) prevEnd() Position {
	if p.pos == 0 {
		return p.toks[0].Start
	}

	return p.toks[p.pos-1].End
}

// save/restore back a tentative parse out, including any diagnostics it
// raised, so speculative lookahead (paren expr-vs-formula, comprehension
// vs. block) never leaks partial failures into the final result.
func (p *Parser) save() (int, int) { return p.pos, len(p.diags.items) }

func (p *Parser) restore(pos, diagLen int) {
	p.pos = pos
	p.diags.items = p.diags.items[:diagLen]
}

func (p *Parser) tokText() string {
	if p.atEOF() {
		return "<eof>"
	}

	return p.cur().Text
}

func (p *Parser) expect(kind TokenKind, desc string) Token {
	if p.cur().Kind == kind {
		return p.advance()
	}

	p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "expected %s, found %q", desc, p.tokText())

	return p.cur()
}

func (p *Parser) expectClose(kind TokenKind, desc string) Token {
	if p.cur().Kind == kind {
		return p.advance()
	}

	p.diags.Errorf(p.cur().Span(), CodeMissingCloser, "expected closing %q", desc)

	return p.cur()
}

func (p *Parser) expectKeyword(kw string) Token {
	if p.cur().IsKeyword(kw) {
		return p.advance()
	}

	p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "expected %q, found %q", kw, p.tokText())

	return p.cur()
}

func (p *Parser) expectOp(op string) Token {
	if p.cur().IsOp(op) {
		return p.advance()
	}

	p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "expected %q, found %q", op, p.tokText())

	return p.cur()
}

func (p *Parser) expectIdentName() string {
	if p.cur().Kind == TIdent {
		return p.advance().Text
	}

	p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "expected identifier, found %q", p.tokText())

	if !p.atEOF() {
		p.advance()
	}

	return "<error>"
}

func isMultKeyword(t Token) bool {
	return t.Kind == TKeyword && (t.Text == "set" || t.Text == "one" || t.Text == "lone" || t.Text == "some" || t.Text == "no")
}

func (p *Parser) curIsImpliesTok() bool {
	t := p.cur()

	return t.IsOp("=>") || t.IsKeyword("implies")
}

// =============================================================================
// Module / opens / paragraph dispatch
// =============================================================================

func (p *Parser) parseModule() *Module {
	start := p.cur().Start

	name := ""
	var params []string
	if p.cur().IsKeyword("module") {
		p.advance()
		name = p.expectIdentName()

		if p.cur().Kind == TLBracket {
			p.advance()
			for p.cur().Kind != TRBracket && !p.atEOF() {
				params = append(params, p.expectIdentName())
				if p.cur().Kind == TComma {
					p.advance()
				} else {
					break
				}
			}
			p.expectClose(TRBracket, "]")
		}
	}

	var opens []*Open
	for p.cur().IsKeyword("open") {
		opens = append(opens, p.parseOpen())
	}

	var paragraphs []Paragraph
	for !p.atEOF() {
		para := p.parseParagraph()
		if para != nil {
			paragraphs = append(paragraphs, para)
		}
	}

	return &Module{
		NameSpan:   Span{Start: start, End: p.prevEnd()},
		Name:       name,
		Params:     params,
		Opens:      opens,
		Paragraphs: paragraphs,
	}
}

func (p *Parser) parsePathString() string {
	s := p.expectIdentName()
	for p.cur().Kind == TDot {
		p.advance()
		s += "." + p.expectIdentName()
	}

	return s
}

func (p *Parser) parseOpen() *Open {
	start := p.cur().Start
	p.advance() // 'open'

	path := p.parsePathString()

	var args []string
	if p.cur().Kind == TLBracket {
		p.advance()
		for p.cur().Kind != TRBracket && !p.atEOF() {
			args = append(args, p.expectIdentName())
			if p.cur().Kind == TComma {
				p.advance()
			} else {
				break
			}
		}
		p.expectClose(TRBracket, "]")
	}

	alias := ""
	if p.cur().IsKeyword("as") {
		p.advance()
		alias = p.expectIdentName()
	}

	return &Open{OpenSpan: Span{Start: start, End: p.prevEnd()}, Path: path, Args: args, Alias: alias}
}

func (p *Parser) startsSigDecl() bool {
	return p.aheadHasSigKeyword(p.pos)
}

func (p *Parser) aheadHasSigKeyword(from int) bool {
	i := from
	for {
		t := p.at(i)
		if t.IsKeyword("abstract") || t.IsKeyword("var") || t.IsKeyword("private") ||
			(t.Kind == TKeyword && (t.Text == "one" || t.Text == "lone" || t.Text == "some")) {
			i++

			continue
		}

		return t.IsKeyword("sig")
	}
}

func (p *Parser) synchronizeParagraph() {
	for !p.atEOF() {
		t := p.cur()
		if t.IsKeyword("sig") || t.IsKeyword("abstract") || t.IsKeyword("var") || t.IsKeyword("private") ||
			t.IsKeyword("enum") || t.IsKeyword("fact") || t.IsKeyword("pred") || t.IsKeyword("fun") ||
			t.IsKeyword("assert") || t.IsKeyword("run") || t.IsKeyword("check") ||
			(t.Kind == TKeyword && (t.Text == "one" || t.Text == "lone" || t.Text == "some")) {
			return
		}

		p.advance()
	}
}

func (p *Parser) parseParagraph() Paragraph {
	switch {
	case p.cur().IsKeyword("enum"):
		return p.parseEnumDecl()
	case p.cur().IsKeyword("fact"):
		return p.parseFactDecl()
	case p.cur().IsKeyword("pred"):
		return p.parsePredDecl()
	case p.cur().IsKeyword("fun"):
		return p.parseFunDecl()
	case p.cur().IsKeyword("assert"):
		return p.parseAssertDecl()
	case p.cur().IsKeyword("run"):
		return p.parseCommand(CommandRun)
	case p.cur().IsKeyword("check"):
		return p.parseCommand(CommandCheck)
	case p.startsSigDecl():
		return p.parseSigDecl()
	default:
		p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "unexpected token %q at top level", p.tokText())
		if !p.atEOF() {
			p.advance()
		}
		p.synchronizeParagraph()

		return nil
	}
}

// =============================================================================
// Signatures, fields, enums
// =============================================================================

func (p *Parser) parseSigDecl() *SigDecl {
	start := p.cur().Start

	var mods SigModifiers
modLoop:
	for {
		switch {
		case p.cur().IsKeyword("abstract"):
			mods.Abstract = true
			p.advance()
		case p.cur().IsKeyword("var"):
			mods.Var = true
			p.advance()
		case p.cur().IsKeyword("private"):
			mods.Private = true
			p.advance()
		case p.cur().Kind == TKeyword && (p.cur().Text == "one" || p.cur().Text == "lone" || p.cur().Text == "some"):
			mods.Mult = p.cur().Text
			p.advance()
		default:
			break modLoop
		}
	}

	p.expectKeyword("sig")

	names := []string{p.expectIdentName()}
	for p.cur().Kind == TComma {
		p.advance()
		names = append(names, p.expectIdentName())
	}

	var extends *QualName
	var in []QualName
	switch {
	case p.cur().IsKeyword("extends"):
		p.advance()
		qn := p.parseQualName()
		extends = &qn
	case p.cur().IsKeyword("in"):
		p.advance()
		in = append(in, p.parseQualName())
		for p.cur().IsOp("+") {
			p.advance()
			in = append(in, p.parseQualName())
		}
	}

	p.expect(TLBrace, "{")

	var fields []*FieldDecl
	for p.cur().Kind != TRBrace && !p.atEOF() {
		fields = append(fields, p.parseFieldGroup())
		if p.cur().Kind == TComma {
			p.advance()
		}
	}
	p.expectClose(TRBrace, "}")

	var facts []Formula
	if p.cur().Kind == TLBrace {
		p.advance()
		for p.cur().Kind != TRBrace && !p.atEOF() {
			facts = append(facts, p.parseFormula())
		}
		p.expectClose(TRBrace, "}")
	}

	return &SigDecl{
		DeclSpan: Span{Start: start, End: p.prevEnd()},
		Mods:     mods,
		Names:    names,
		Extends:  extends,
		In:       in,
		Fields:   fields,
		Facts:    facts,
	}
}

func (p *Parser) parseQualName() QualName {
	start := p.cur().Start
	name := p.expectIdentName()
	for p.cur().Kind == TDot {
		p.advance()
		name += "." + p.expectIdentName()
	}

	return QualName{NameSpan: Span{Start: start, End: p.prevEnd()}, Name: name}
}

// parseNameList parses a comma-separated identifier list, stopping the
// moment a comma is not immediately followed by another identifier (so the
// enclosing decl-group loop can claim that comma as its own separator).
func (p *Parser) parseNameList() []string {
	names := []string{p.expectIdentName()}
	for p.cur().Kind == TComma && p.peek(1).Kind == TIdent {
		p.advance()
		names = append(names, p.expectIdentName())
	}

	return names
}

func (p *Parser) parseFieldGroup() *FieldDecl {
	start := p.cur().Start

	disj, varf := false, false
fieldModLoop:
	for {
		switch {
		case p.cur().IsKeyword("disj"):
			disj = true
			p.advance()
		case p.cur().IsKeyword("var"):
			varf = true
			p.advance()
		default:
			break fieldModLoop
		}
	}

	names := p.parseNameList()
	p.expect(TColon, ":")
	typ := p.parseExpr()

	return &FieldDecl{DeclSpan: Span{Start: start, End: p.prevEnd()}, Names: names, Disj: disj, Var: varf, Type: typ}
}

func (p *Parser) parseEnumDecl() *EnumDecl {
	start := p.cur().Start
	p.advance() // 'enum'

	name := p.expectIdentName()
	p.expect(TLBrace, "{")

	var values []string
	for p.cur().Kind != TRBrace && !p.atEOF() {
		values = append(values, p.expectIdentName())
		if p.cur().Kind == TComma {
			p.advance()
		} else {
			break
		}
	}
	p.expectClose(TRBrace, "}")

	return &EnumDecl{DeclSpan: Span{Start: start, End: p.prevEnd()}, Name: name, Values: values}
}

// =============================================================================
// Facts, predicates, functions, assertions
// =============================================================================

func (p *Parser) parseFactDecl() *FactDecl {
	start := p.cur().Start
	p.advance() // 'fact'

	name := ""
	if p.cur().Kind == TIdent {
		name = p.expectIdentName()
	}

	body := p.parseBlockFormula()

	return &FactDecl{DeclSpan: Span{Start: start, End: p.prevEnd()}, Name: name, Body: body}
}

func (p *Parser) parseParamList() []*ParamDecl {
	p.expect(TLParen, "(")

	var params []*ParamDecl
	for p.cur().Kind != TRParen && !p.atEOF() {
		d := p.parseDecl()
		params = append(params, &ParamDecl{DeclSpan: d.Span(), Names: d.Names, Disj: d.Disj, Mult: d.Mult, Type: d.Type})
		if p.cur().Kind == TComma {
			p.advance()
		} else {
			break
		}
	}
	p.expectClose(TRParen, ")")

	return params
}

func (p *Parser) parseReceiverName() (receiver, name string) {
	first := p.expectIdentName()
	if p.cur().Kind == TDot {
		p.advance()

		return first, p.expectIdentName()
	}

	return "", first
}

func (p *Parser) parsePredDecl() *PredDecl {
	start := p.cur().Start
	p.advance() // 'pred'

	receiver, name := p.parseReceiverName()
	params := p.parseParamList()
	body := p.parseBlockFormula()

	return &PredDecl{DeclSpan: Span{Start: start, End: p.prevEnd()}, Receiver: receiver, Name: name, Params: params, Body: body}
}

func (p *Parser) parseFunDecl() *FunDecl {
	start := p.cur().Start
	p.advance() // 'fun'

	receiver, name := p.parseReceiverName()
	params := p.parseParamList()
	p.expect(TColon, ":")
	retType := p.parseExpr()

	p.expect(TLBrace, "{")
	body := p.parseExpr()
	p.expectClose(TRBrace, "}")

	return &FunDecl{
		DeclSpan: Span{Start: start, End: p.prevEnd()}, Receiver: receiver, Name: name,
		Params: params, RetType: retType, Body: body,
	}
}

func (p *Parser) parseAssertDecl() *AssertDecl {
	start := p.cur().Start
	p.advance() // 'assert'

	name := ""
	if p.cur().Kind == TIdent {
		name = p.expectIdentName()
	}

	body := p.parseBlockFormula()

	return &AssertDecl{DeclSpan: Span{Start: start, End: p.prevEnd()}, Name: name, Body: body}
}

// =============================================================================
// Commands
// =============================================================================

func (p *Parser) parseIntLit() int {
	if p.cur().Kind != TInt {
		p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "expected integer literal, found %q", p.tokText())

		return 0
	}

	t := p.advance()
	n, _ := strconv.Atoi(t.Text)

	return n
}

func (p *Parser) parseCommand(kind CommandKind) *Command {
	start := p.cur().Start
	p.advance() // 'run' / 'check'

	label := ""
	if p.cur().Kind == TIdent && p.peek(1).Kind == TColon {
		label = p.advance().Text
		p.advance() // ':'
	}

	target := ""
	var args []Expr
	var inline Formula

	switch {
	case p.cur().Kind == TLBrace:
		inline = p.parseBlockFormula()
	case p.cur().Kind == TIdent:
		target = p.advance().Text
		if p.cur().Kind == TLBracket {
			p.advance()
			args = p.parseExprList(TRBracket)
			p.expectClose(TRBracket, "]")
		}
	default:
		p.diags.Errorf(p.cur().Span(), CodeUnexpectedToken, "expected a predicate/assertion name or a formula block")
	}

	scope := p.parseCommandScope()

	return &Command{
		DeclSpan: Span{Start: start, End: p.prevEnd()}, Kind: kind, Label: label,
		Target: target, Args: args, Inline: inline, Scope: scope,
	}
}

func (p *Parser) parseCommandScope() CommandScope {
	var sc CommandScope

	if p.cur().IsKeyword("for") {
		p.advance()

		if p.cur().Kind == TInt {
			sc.Default = p.parseIntLit()
			sc.HasDefault = true
		}

		if p.cur().IsKeyword("but") {
			p.advance()

			for {
				exactly := false
				if p.cur().IsKeyword("exactly") {
					exactly = true
					p.advance()
				}

				n := p.parseIntLit()

				switch {
				case p.cur().IsKeyword("steps"):
					p.advance()
					sc.Steps = n
					sc.HasSteps = true
				case p.cur().IsKeyword("int"):
					p.advance()
					sc.IntBits = n
					sc.HasIntBits = true
				default:
					sigName := p.expectIdentName()
					sc.PerSig = append(sc.PerSig, PerSigScope{Sig: sigName, Count: n, Exactly: exactly})
				}

				if p.cur().Kind == TComma {
					p.advance()

					continue
				}

				break
			}
		}
	}

	if p.cur().IsKeyword("expect") {
		p.advance()
		sc.Expect = p.parseIntLit()
		sc.HasExpect = true
	}

	return sc
}

// =============================================================================
// Shared decl / let-binding parsing (quantifiers, comprehensions, lets)
// =============================================================================

func (p *Parser) parseDecl() *Decl {
	start := p.cur().Start

	disj := false
	if p.cur().IsKeyword("disj") {
		disj = true
		p.advance()
	}

	names := p.parseNameList()
	p.expect(TColon, ":")

	mult := ""
	if isMultKeyword(p.cur()) {
		mult = p.cur().Text
		p.advance()
	}

	typ := p.parseExpr()

	return &Decl{DeclSpan: Span{Start: start, End: p.prevEnd()}, Names: names, Disj: disj, Mult: mult, Type: typ}
}

func (p *Parser) parseDeclGroups() []*Decl {
	decls := []*Decl{p.parseDecl()}
	for p.cur().Kind == TComma {
		p.advance()
		decls = append(decls, p.parseDecl())
	}

	return decls
}

func (p *Parser) parseLetBindings() []*LetBinding {
	var out []*LetBinding
	for {
		start := p.cur().Start
		name := p.expectIdentName()
		p.expectOp("=")
		val := p.parseExpr()
		out = append(out, &LetBinding{BindSpan: Span{Start: start, End: p.prevEnd()}, Name: name, Value: val})

		if p.cur().Kind == TComma {
			p.advance()

			continue
		}

		break
	}

	return out
}

// looksLikeQuantifierDecls implements the quantifier-vs-multiplicity-prefix
// disambiguation (§4.2): a quantifier keyword is followed by
// `[disj] name(, name)* :`; anything else means the keyword is a bare
// multiplicity test on an expression.
func (p *Parser) looksLikeQuantifierDecls() bool {
	i := p.pos + 1
	if p.at(i).IsKeyword("disj") {
		i++
	}

	if p.at(i).Kind != TIdent {
		return false
	}
	i++

	for p.at(i).Kind == TComma && p.at(i+1).Kind == TIdent {
		i += 2
	}

	return p.at(i).Kind == TColon
}

// =============================================================================
// Formulas (precedence, lowest to highest: iff, implies/cond, or, and,
// temporal binary, unary/temporal-prefix, quantified/let, comparison)
// =============================================================================

func (p *Parser) parseFormula() Formula { return p.parseIffFormula() }

func (p *Parser) parseIffFormula() Formula {
	left := p.parseImpliesFormula()
	for p.cur().IsOp("<=>") || p.cur().IsKeyword("iff") {
		p.advance()
		right := p.parseImpliesFormula()
		left = &BinaryFormula{BinSpan: joinSpan(left.Span(), right.Span()), Op: "iff", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseImpliesFormula() Formula {
	left := p.parseOrFormula()
	for p.curIsImpliesTok() {
		p.advance()
		then := p.parseOrFormula()

		if p.cur().IsKeyword("else") {
			p.advance()
			els := p.parseOrFormula()
			left = &IfFormula{IfSpan: joinSpan(left.Span(), els.Span()), Cond: left, Then: then, Else: els}

			continue
		}

		left = &BinaryFormula{BinSpan: joinSpan(left.Span(), then.Span()), Op: "implies", Left: left, Right: then}
	}

	return left
}

func (p *Parser) parseOrFormula() Formula {
	left := p.parseAndFormula()
	for p.cur().IsKeyword("or") {
		p.advance()
		right := p.parseAndFormula()
		left = &BinaryFormula{BinSpan: joinSpan(left.Span(), right.Span()), Op: "or", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseAndFormula() Formula {
	left := p.parseTemporalBinaryFormula()
	for p.cur().IsKeyword("and") {
		p.advance()
		right := p.parseTemporalBinaryFormula()
		left = &BinaryFormula{BinSpan: joinSpan(left.Span(), right.Span()), Op: "and", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseTemporalBinaryFormula() Formula {
	left := p.parseUnaryFormula()
	for {
		t := p.cur()
		switch {
		case t.Kind == TSemi:
			p.advance()
			right := p.parseUnaryFormula()
			left = &TemporalBinaryFormula{TBSpan: joinSpan(left.Span(), right.Span()), Op: ";", Left: left, Right: right}
		case t.Kind == TKeyword && temporalBinary[t.Text]:
			p.advance()
			right := p.parseUnaryFormula()
			left = &TemporalBinaryFormula{TBSpan: joinSpan(left.Span(), right.Span()), Op: t.Text, Left: left, Right: right}
		default:
			return left
		}
	}
}

func (p *Parser) parseUnaryFormula() Formula {
	t := p.cur()

	if t.IsKeyword("not") || t.IsOp("!") {
		p.advance()
		x := p.parseUnaryFormula()

		return &NotFormula{NotSpan: joinSpan(t.Span(), x.Span()), X: x}
	}

	if t.Kind == TKeyword && (temporalUnaryFuture[t.Text] || temporalUnaryPast[t.Text]) {
		p.advance()
		x := p.parseUnaryFormula()

		return &TemporalUnaryFormula{TUSpan: joinSpan(t.Span(), x.Span()), Op: t.Text, X: x}
	}

	return p.parseQuantifiedFormula()
}

func (p *Parser) parseQuantifiedFormula() Formula {
	t := p.cur()

	if t.Kind == TKeyword && quantifierKeywords[t.Text] && p.looksLikeQuantifierDecls() {
		p.advance()
		decls := p.parseDeclGroups()
		p.expect(TBar, "|")
		body := p.parseFormula()

		return &QuantFormula{QSpan: joinSpan(t.Span(), body.Span()), Quant: t.Text, Decls: decls, Body: body}
	}

	if t.IsKeyword("let") {
		p.advance()
		bindings := p.parseLetBindings()
		p.expect(TBar, "|")
		body := p.parseFormula()

		return &LetFormula{LetSpan: joinSpan(t.Span(), body.Span()), Bindings: bindings, Body: body}
	}

	return p.parseCompareFormula()
}

func (p *Parser) parseCompareFormula() Formula {
	if p.cur().Kind == TLBrace {
		return p.parseBlockFormula()
	}

	start := p.cur().Start
	left := p.parseExpr()

	op := ""
	switch {
	case p.cur().IsOp("="), p.cur().IsOp("!="), p.cur().IsOp("<="), p.cur().IsOp(">="), p.cur().IsOp("<"), p.cur().IsOp(">"):
		op = p.cur().Text
		p.advance()
	case p.cur().IsKeyword("in"):
		op = "in"
		p.advance()
	case p.cur().IsKeyword("not") && p.peek(1).IsKeyword("in"):
		p.advance()
		p.advance()
		op = "not in"
	}

	if op != "" {
		right := p.parseExpr()

		return &CompareFormula{CmpSpan: Span{Start: start, End: right.Span().End}, Op: op, Left: left, Right: right}
	}

	return exprAsFormula(left)
}

func (p *Parser) parseBlockFormula() *BlockFormula {
	start := p.cur().Start
	p.expect(TLBrace, "{")

	var formulas []Formula
	for p.cur().Kind != TRBrace && !p.atEOF() {
		formulas = append(formulas, p.parseFormula())
	}
	p.expectClose(TRBrace, "}")

	return &BlockFormula{BlockSpan: Span{Start: start, End: p.prevEnd()}, Formulas: formulas}
}

// exprAsFormula lifts a bare expression into formula position. A
// multiplicity-prefixed expression becomes its own multiplicity test; a
// call-shaped box join becomes a predicate call; anything else is the
// implicit "some" test of §4.8.
func exprAsFormula(e Expr) Formula {
	switch x := e.(type) {
	case *MultExpr:
		return &MultFormula{MultSpanPos: x.Span(), Mult: x.Mult, X: x.X}
	case *BoxJoinExpr:
		if recv, name, ok := splitCallReceiver(x.Fn); ok {
			return &CallFormula{CallSpanPos: x.Span(), Receiver: recv, Name: name, Args: x.Args}
		}

		return &ExprFormula{ExprSpanPos: e.Span(), X: e}
	default:
		return &ExprFormula{ExprSpanPos: e.Span(), X: e}
	}
}

func splitCallReceiver(fn Expr) (recv Expr, name string, ok bool) {
	switch f := fn.(type) {
	case *NameExpr:
		return nil, f.Name, true
	case *BuiltinExpr:
		return nil, f.Name, true
	case *BinaryExpr:
		if f.Op == "." {
			if n, isName := f.Right.(*NameExpr); isName {
				return f.Left, n.Name, true
			}
		}
	}

	return nil, "", false
}

// =============================================================================
// Expressions (precedence, lowest to highest: union, difference,
// intersection, override, product, restriction, join, unary-prefix /
// multiplicity-prefix, primary)
// =============================================================================

func (p *Parser) parseExpr() Expr { return p.parseExprUnion() }

func (p *Parser) parseExprUnion() Expr {
	left := p.parseExprDiff()
	for p.cur().IsOp("+") {
		p.advance()
		right := p.parseExprDiff()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: "+", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprDiff() Expr {
	left := p.parseExprIsect()
	for p.cur().IsOp("-") {
		p.advance()
		right := p.parseExprIsect()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: "-", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprIsect() Expr {
	left := p.parseExprOverride()
	for p.cur().IsOp("&") {
		p.advance()
		right := p.parseExprOverride()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: "&", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprOverride() Expr {
	left := p.parseExprProduct()
	for p.cur().IsOp("++") {
		p.advance()
		right := p.parseExprProduct()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: "++", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprProduct() Expr {
	left := p.parseExprRestrict()
	for p.cur().IsOp("->") {
		p.advance()
		right := p.parseExprRestrict()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: "->", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprRestrict() Expr {
	left := p.parseExprJoin()
	for p.cur().IsOp("<:") || p.cur().IsOp(":>") {
		op := p.cur().Text
		p.advance()
		right := p.parseExprJoin()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: op, Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprJoin() Expr {
	left := p.parseExprUnary()
	for p.cur().Kind == TDot {
		p.advance()
		right := p.parseExprUnary()
		left = &BinaryExpr{BinSpan: joinSpan(left.Span(), right.Span()), Op: ".", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseExprUnary() Expr {
	t := p.cur()

	if t.IsOp("~") || t.IsOp("^") || t.IsOp("*") || t.IsOp("#") {
		p.advance()
		x := p.parseExprUnary()

		return &UnaryExpr{UnSpan: joinSpan(t.Span(), x.Span()), Op: t.Text, X: x}
	}

	if isMultKeyword(t) {
		p.advance()
		x := p.parseExprUnary()

		return &MultExpr{MultSpanPos: joinSpan(t.Span(), x.Span()), Mult: t.Text, X: x}
	}

	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() Expr {
	x := p.parsePrimaryExpr()

	for {
		switch p.cur().Kind {
		case TPrime:
			primeTok := p.advance()
			x = &PrimeExpr{PrimeSpanPos: joinSpan(x.Span(), primeTok.Span()), X: x}
		case TLBracket:
			jstart := x.Span().Start
			p.advance()
			args := p.parseExprList(TRBracket)
			p.expectClose(TRBracket, "]")
			x = &BoxJoinExpr{JoinSpan: Span{Start: jstart, End: p.prevEnd()}, Fn: x, Args: args}
		default:
			return x
		}
	}
}

func (p *Parser) parseExprList(closeKind TokenKind) []Expr {
	var exprs []Expr
	for p.cur().Kind != closeKind && !p.atEOF() {
		exprs = append(exprs, p.parseExpr())
		if p.cur().Kind == TComma {
			p.advance()
		} else {
			break
		}
	}

	return exprs
}

// looksLikeComprehension scans ahead from just past a '{' for a top-level
// '|' before the matching '}', tracking paren/bracket/brace nesting. A hit
// means `{ decls | body }`; a miss means a brace-delimited formula block
// used in expression position (§9 open question 3).
func (p *Parser) looksLikeComprehension(start int) bool {
	depth := 0
	for i := start; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case TLParen, TLBracket, TLBrace:
			depth++
		case TRParen, TRBracket:
			depth--
		case TRBrace:
			if depth == 0 {
				return false
			}

			depth--
		case TBar:
			if depth == 0 {
				return true
			}
		case TEOF:
			return false
		}
	}

	return false
}

func (p *Parser) parseComprehensionExpr() Expr {
	start := p.cur().Start
	p.advance() // '{'

	decls := p.parseDeclGroups()
	p.expect(TBar, "|")
	body := p.parseFormula()
	p.expectClose(TRBrace, "}")

	return &ComprehensionExpr{ComprSpan: Span{Start: start, End: p.prevEnd()}, Decls: decls, Body: body}
}

func (p *Parser) parseBlockExpr() Expr {
	start := p.cur().Start
	p.advance() // '{'

	var formulas []Formula
	for p.cur().Kind != TRBrace && !p.atEOF() {
		formulas = append(formulas, p.parseFormula())
	}
	p.expectClose(TRBrace, "}")

	return &BlockExpr{BlockSpan: Span{Start: start, End: p.prevEnd()}, Formulas: formulas}
}

func (p *Parser) parseLetExpr() Expr {
	start := p.cur().Start
	p.advance() // 'let'

	bindings := p.parseLetBindings()
	p.expect(TBar, "|")
	body := p.parseExpr()

	return &LetExpr{LetSpan: Span{Start: start, End: p.prevEnd()}, Bindings: bindings, Body: body}
}

// parseParenOrIfExpr handles both a plain parenthesized expression and the
// expression-valued conditional `(cond) => then else otherwise`: it first
// tries the common case (an expression filling the parens), and falls back
// to a formula only when the expression grammar could not consume up to the
// matching ')'.
func (p *Parser) parseParenOrIfExpr() Expr {
	start := p.cur().Start
	p.advance() // '('

	savePos, saveDiag := p.save()
	expr := p.parseExpr()

	if p.cur().Kind == TRParen {
		p.advance()

		if p.curIsImpliesTok() {
			return p.finishIfExpr(start, exprAsFormula(expr))
		}

		return expr
	}

	p.restore(savePos, saveDiag)

	formula := p.parseFormula()
	p.expectClose(TRParen, ")")

	if p.curIsImpliesTok() {
		return p.finishIfExpr(start, formula)
	}

	p.diags.Errorf(Span{Start: start, End: p.prevEnd()}, CodeUnexpectedToken, "parenthesized formula used outside a conditional expression")

	return &NameExpr{NameSpan: Span{Start: start, End: p.prevEnd()}, Name: "<error>"}
}

func (p *Parser) finishIfExpr(start Position, cond Formula) Expr {
	p.advance() // '=>'
	then := p.parseExpr()
	p.expectKeyword("else")
	els := p.parseExpr()

	return &IfExpr{IfSpan: Span{Start: start, End: p.prevEnd()}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parsePrimaryExpr() Expr {
	t := p.cur()

	switch {
	case t.Kind == TLParen:
		return p.parseParenOrIfExpr()
	case t.Kind == TInt:
		p.advance()
		v, _ := strconv.ParseInt(t.Text, 10, 64)

		return &IntLitExpr{LitSpan: t.Span(), Value: v}
	case t.Kind == TLBrace:
		if p.looksLikeComprehension(p.pos + 1) {
			return p.parseComprehensionExpr()
		}

		return p.parseBlockExpr()
	case t.IsKeyword("let"):
		return p.parseLetExpr()
	case t.IsOp("@"):
		p.advance()
		name := p.expectIdentName()

		return &NameExpr{NameSpan: Span{Start: t.Start, End: p.prevEnd()}, Name: name, Suppressed: true}
	case t.Kind == TIdent:
		p.advance()

		return &NameExpr{NameSpan: t.Span(), Name: t.Text}
	case t.Kind == TKeyword && isBuiltinName(t.Text):
		p.advance()

		return &BuiltinExpr{BuiltinSpan: t.Span(), Name: t.Text}
	default:
		p.diags.Errorf(t.Span(), CodeUnexpectedToken, "expected expression, found %q", p.tokText())
		if !p.atEOF() {
			p.advance()
		}

		return &NameExpr{NameSpan: t.Span(), Name: "<error>"}
	}
}
