// Package shell is a line-oriented console over the note store: log in, list, create, write, read
// and delete entries, with one short status line per command.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mplewis/notekv"
	"github.com/mplewis/notekv/access"
	"github.com/mplewis/notekv/session"
)

const help = `Commands:
  login <user> <password>     start a session
  logout                      end the session
  ls                          list files
  create <name>               create an empty file
  write [-c] <name> <text>    write text to a file, -c stores it compressed
  read <name>                 show a file
  save <text>                 write text to the file last read, keeping its compression
  delete <name>               delete a file
  compress <name>             store a file compressed
  decompress <name>           store a file plain
  help                        show this help
  quit                        leave`

// maxLine bounds a single input line.
const maxLine = 1 << 20

// Shell runs commands against a store on behalf of one logged-in session at a time.
type Shell struct {
	in       io.Reader
	out      io.Writer
	prompt   string
	store    *notekv.Store
	sessions *session.Manager
	policy   access.Policy

	sid  session.ID
	gate *access.Gate

	// the entry last read, so save can write it back the way it was stored
	current    string
	compressed bool
}

// Args are the arguments for a new Shell.
type Args struct {
	In       io.Reader        // Required. Where commands are read from.
	Out      io.Writer        // Required. Where status lines and content are written.
	Store    *notekv.Store    // Required. The store commands act on.
	Sessions *session.Manager // Optional. Validates logins. Defaults to session.New with default identities.
	Policy   *access.Policy   // Optional. Which roles may do what. Defaults to access.DefaultPolicy().
	Prompt   string           // Optional. Printed before each command is read.
}

// New builds a new Shell.
func New(args Args) (*Shell, error) {
	if args.In == nil || args.Out == nil {
		return nil, errors.New("shell needs an input and an output")
	}
	if args.Store == nil {
		return nil, errors.New("shell needs a store")
	}
	if args.Sessions == nil {
		args.Sessions = session.New(session.Args{})
	}
	policy := access.DefaultPolicy()
	if args.Policy != nil {
		policy = *args.Policy
	}
	return &Shell{
		in:       args.In,
		out:      args.Out,
		prompt:   args.Prompt,
		store:    args.Store,
		sessions: args.Sessions,
		policy:   policy,
	}, nil
}

// Run executes commands until the input ends or a quit command is read.
func (s *Shell) Run() error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 4096), maxLine)
	for {
		if s.prompt != "" {
			fmt.Fprint(s.out, s.prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if quit := s.Exec(scanner.Text()); quit {
			return nil
		}
	}
}

// Exec executes one command line and reports whether it asked to quit.
func (s *Shell) Exec(line string) (quit bool) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimLeft(rest, " ")

	switch cmd {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		s.say(help)
		return false
	case "login":
		s.login(rest)
		return false
	}

	if !s.loggedIn() {
		return false
	}

	switch cmd {
	case "logout":
		s.logout()
	case "ls":
		s.list()
	case "create":
		s.create(rest)
	case "write":
		s.write(rest)
	case "save":
		s.save(rest)
	case "read":
		s.read(rest)
	case "delete":
		s.delete(rest)
	case "compress":
		s.setCompression(rest, true)
	case "decompress":
		s.setCompression(rest, false)
	default:
		s.say("Unknown command: %s. Type help for commands.", cmd)
	}
	return false
}

func (s *Shell) say(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// loggedIn reports whether a live session exists, telling the user otherwise.
func (s *Shell) loggedIn() bool {
	if s.gate == nil {
		s.say("Please log in.")
		return false
	}
	if _, ok := s.sessions.Role(s.sid); !ok {
		s.reset()
		s.say("Session expired. Please log in.")
		return false
	}
	return true
}

func (s *Shell) reset() {
	s.sid = ""
	s.gate = nil
	s.current = ""
	s.compressed = false
}

func (s *Shell) login(rest string) {
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		s.say("Usage: login <user> <password>")
		return
	}
	sid, role, err := s.sessions.Login(fields[0], fields[1])
	if err != nil {
		s.say("Invalid credentials.")
		return
	}
	if s.gate != nil {
		s.sessions.Logout(s.sid)
	}
	s.reset()
	s.sid = sid
	s.gate = access.NewGate(s.store, s.policy, role)
	s.say("Logged in as: %s", role)
}

func (s *Shell) logout() {
	s.sessions.Logout(s.sid)
	s.reset()
	s.say("Logged out.")
}

func (s *Shell) list() {
	entries, err := s.gate.Entries()
	if err != nil {
		s.fail(err, "list")
		return
	}
	if len(entries) == 0 {
		s.say("No files.")
		return
	}
	for _, e := range entries {
		if e.Compressed {
			s.say("%s (compressed)", e.Name)
		} else {
			s.say("%s", e.Name)
		}
	}
}

func (s *Shell) create(name string) {
	if name == "" {
		s.say("Please enter a file name.")
		return
	}
	if err := s.gate.Create(name); err != nil {
		s.fail(err, "create")
		return
	}
	s.say("File '%s' created.", name)
}

func (s *Shell) write(rest string) {
	compressed := false
	if flag, after, _ := strings.Cut(rest, " "); flag == "-c" {
		compressed = true
		rest = strings.TrimLeft(after, " ")
	}
	name, content, _ := strings.Cut(rest, " ")
	if name == "" {
		s.say("Please enter a file name.")
		return
	}
	s.put(name, content, compressed)
}

func (s *Shell) save(content string) {
	if s.current == "" {
		s.say("Please select a file to read.")
		return
	}
	s.put(s.current, content, s.compressed)
}

func (s *Shell) put(name, content string, compressed bool) {
	if err := s.gate.Write(name, content, compressed); err != nil {
		s.fail(err, "modify")
		return
	}
	if name == s.current {
		s.compressed = compressed
	}
	s.say("Content written to '%s'.", name)
}

func (s *Shell) read(name string) {
	if name == "" {
		s.say("Please select a file to read.")
		return
	}
	entry, found, err := s.gate.Read(name)
	if err != nil {
		s.fail(err, "read")
		return
	}
	if !found {
		s.say("File not found.")
		return
	}
	s.current = entry.Name
	s.compressed = entry.Compressed
	s.say("Reading '%s'.", name)
	if entry.Content != "" {
		s.say("File Content:")
		s.say("%s", entry.Content)
	}
}

func (s *Shell) delete(name string) {
	if name == "" {
		s.say("Please select a file to delete.")
		return
	}
	if err := s.gate.Delete(name); err != nil {
		s.fail(err, "delete")
		return
	}
	if name == s.current {
		s.current = ""
		s.compressed = false
	}
	s.say("File '%s' deleted.", name)
}

func (s *Shell) setCompression(name string, compressed bool) {
	if name == "" {
		s.say("Please enter a file name.")
		return
	}
	if err := s.gate.SetCompression(name, compressed); err != nil {
		s.fail(err, "compress")
		return
	}
	if name == s.current {
		s.compressed = compressed
	}
	if compressed {
		s.say("File '%s' compressed.", name)
	} else {
		s.say("File '%s' decompressed.", name)
	}
}

// fail renders an error as a status line. verb names the action in permission messages.
func (s *Shell) fail(err error, verb string) {
	var (
		forbidden access.ForbiddenError
		dup       notekv.DuplicateNameError
		missing   notekv.MissingNameError
		reserved  notekv.ReservedNameError
		notFound  notekv.NotFoundError
	)
	switch {
	case errors.As(err, &forbidden):
		if forbidden.Op == access.Read && forbidden.Name != "" {
			s.say("Normal users can only read compressed files")
			return
		}
		s.say("Only admin users can %s files", verb)
	case errors.As(err, &dup):
		s.say("File already exists.")
	case errors.As(err, &missing):
		s.say("Please enter a file name.")
	case errors.As(err, &reserved):
		s.say("File name '%s' is reserved.", reserved.Name)
	case errors.As(err, &notFound):
		s.say("File not found.")
	default:
		s.say("Error: %s", err)
	}
}
