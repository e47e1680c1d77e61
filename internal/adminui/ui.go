// Package adminui implements the interactive admin TUI using Bubble Tea.
package adminui

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"shareview/internal/adminapi"
)

// state represents the current screen in the admin UI.
type state int

const (
	stateLogin state = iota
	stateUsers
	stateNewUser
	stateEditUser
	stateSetPassword
)

// Model holds all UI state for the admin TUI.
type Model struct {
	client *adminapi.Client
	addr   string

	st  state
	err string

	loginUser textinput.Model
	loginPass textinput.Model

	users   []adminapi.User
	userLst list.Model

	newUsername textinput.Model
	newEmail    textinput.Model
	newPassword textinput.Model
	newAdmin    bool

	edEmail  textinput.Model
	edAdmin  bool
	edActive bool

	setPw textinput.Model
}

// New constructs a UI model and initializes inputs and lists.
func New(client *adminapi.Client, addr string) Model {
	loginUser := textinput.New()
	loginUser.Placeholder = "username"
	loginUser.Prompt = "Username: "
	loginUser.Focus()
	loginPass := textinput.New()
	loginPass.Placeholder = "password"
	loginPass.EchoMode = textinput.EchoPassword
	loginPass.Prompt = "Password: "

	lst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	lst.Title = "Users"

	m := Model{client: client, st: stateLogin, loginUser: loginUser, loginPass: loginPass, userLst: lst}
	m.addr = redactAddr(addr)

	m.newUsername = textinput.New()
	m.newUsername.Placeholder = "username"
	m.newUsername.Prompt = "Username: "
	m.newEmail = textinput.New()
	m.newEmail.Placeholder = "optional"
	m.newEmail.Prompt = "Email: "
	m.newPassword = textinput.New()
	m.newPassword.Placeholder = "password"
	m.newPassword.EchoMode = textinput.EchoPassword
	m.newPassword.Prompt = "Password: "

	m.edEmail = textinput.New()
	m.edEmail.Placeholder = "optional"
	m.edEmail.Prompt = "Email: "

	m.setPw = textinput.New()
	m.setPw.Placeholder = "new password"
	m.setPw.EchoMode = textinput.EchoPassword
	m.setPw.Prompt = "New password: "

	return m
}

// Init returns the initial command for the Bubble Tea runtime.
func (m Model) Init() tea.Cmd {
	return nil
}

type errMsg string
type usersMsg []adminapi.User
type okMsg struct{}

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.userLst.SetSize(msg.Width-4, msg.Height-8)
		return m, nil
	case errMsg:
		m.err = string(msg)
		return m, nil
	case usersMsg:
		m.users = []adminapi.User(msg)
		items := make([]list.Item, 0, len(m.users))
		for _, u := range m.users {
			items = append(items, userItem(u))
		}
		m.userLst.SetItems(items)
		m.err = ""
		return m, nil
	case okMsg:
		m.err = ""
		if m.st == stateLogin {
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		}
		return m, nil
	}

	switch m.st {
	case stateLogin:
		return m.updateLogin(msg)

	case stateUsers:
		var cmd tea.Cmd
		m.userLst, cmd = m.userLst.Update(msg)
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "q", "ctrl+c":
				return m, tea.Quit
			case "r":
				return m, refreshUsersCmd(m.client)
			case "n":
				m.st = stateNewUser
				m.err = ""
				m.newUsername.SetValue("")
				m.newEmail.SetValue("")
				m.newPassword.SetValue("")
				m.newAdmin = false
				m.newUsername.Focus()
				return m, nil
			case "e":
				u, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				m.st = stateEditUser
				m.err = ""
				m.edEmail.SetValue(u.Email)
				m.edAdmin = u.Role == "admin"
				m.edActive = u.Active
				m.edEmail.Focus()
				return m, nil
			case "d":
				u, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				return m, tea.Batch(deleteUserCmd(m.client, u.ID), refreshUsersCmd(m.client))
			case "p":
				_, ok := m.selectedUser()
				if !ok {
					return m, nil
				}
				m.st = stateSetPassword
				m.err = ""
				m.setPw.SetValue("")
				m.setPw.Focus()
				return m, nil
			}
		}
		return m, cmd

	case stateNewUser:
		return m.updateNewUser(msg)
	case stateEditUser:
		return m.updateEditUser(msg)
	case stateSetPassword:
		return m.updateSetPassword(msg)
	default:
		return m, nil
	}
}

// View renders the current screen as a string.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("shareview admin")
	if m.addr != "" {
		b.WriteString(" (" + m.addr + ")")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateLogin:
		b.WriteString("Login\n")
		b.WriteString(m.loginUser.View() + "\n")
		b.WriteString(m.loginPass.View())
		b.WriteString("\n\n")
		b.WriteString("Tab to switch fields. Enter to login. ctrl+c to quit.\n")
	case stateUsers:
		b.WriteString(m.userLst.View())
		b.WriteString("\n")
		b.WriteString("Keys: n=new e=edit d=delete p=set-pass r=refresh q=quit\n")
	case stateNewUser:
		b.WriteString("Create user\n\n")
		b.WriteString(m.newUsername.View() + "\n")
		b.WriteString(m.newEmail.View() + "\n")
		b.WriteString(m.newPassword.View() + "\n")
		b.WriteString(fmt.Sprintf("Admin role: %v (toggle with alt+a)\n\n", m.newAdmin))
		b.WriteString("Enter=save  esc=back\n")
	case stateEditUser:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("Edit user: " + u.Username + "\n\n")
		}
		b.WriteString(m.edEmail.View() + "\n")
		b.WriteString(fmt.Sprintf("Admin role: %v (toggle with alt+a)\n", m.edAdmin))
		b.WriteString(fmt.Sprintf("Active:     %v (toggle with alt+e)\n\n", m.edActive))
		b.WriteString("Enter=save  esc=back\n")
	case stateSetPassword:
		u, ok := m.selectedUser()
		if ok {
			b.WriteString("Set password for: " + u.Username + "\n\n")
		}
		b.WriteString(m.setPw.View())
		b.WriteString("\n\nEnter=save  esc=back\n")
	}

	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}

	return b.String()
}

type userItem adminapi.User

func (u userItem) Title() string { return u.Username }
func (u userItem) Description() string {
	return fmt.Sprintf("role=%s active=%v email=%s", u.Role, u.Active, u.Email)
}
func (u userItem) FilterValue() string { return u.Username }

// selectedUser returns the currently highlighted user list entry.
func (m *Model) selectedUser() (adminapi.User, bool) {
	if m.userLst.SelectedItem() == nil {
		return adminapi.User{}, false
	}
	if it, ok := m.userLst.SelectedItem().(userItem); ok {
		return adminapi.User(it), true
	}
	return adminapi.User{}, false
}

func loginCmd(c *adminapi.Client, username, password string) tea.Cmd {
	return func() tea.Msg {
		if err := c.Login(username, password); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func refreshUsersCmd(c *adminapi.Client) tea.Cmd {
	return func() tea.Msg {
		users, err := c.ListUsers()
		if err != nil {
			return errMsg(err.Error())
		}
		return usersMsg(users)
	}
}

func deleteUserCmd(c *adminapi.Client, id int64) tea.Cmd {
	return func() tea.Msg {
		if err := c.DeleteUser(id); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

// updateLogin handles the credential form.
func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.loginUser.Focused() {
				m.loginUser.Blur()
				m.loginPass.Focus()
			} else {
				m.loginPass.Blur()
				m.loginUser.Focus()
			}
			return m, nil
		case "enter":
			user := strings.TrimSpace(m.loginUser.Value())
			pw := m.loginPass.Value()
			m.loginPass.SetValue("")
			return m, loginCmd(m.client, user, pw)
		}
	}
	var cmd tea.Cmd
	if m.loginUser.Focused() {
		m.loginUser, cmd = m.loginUser.Update(msg)
	} else {
		m.loginPass, cmd = m.loginPass.Update(msg)
	}
	return m, cmd
}

// updateNewUser handles input while creating a new user.
func (m Model) updateNewUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		case "alt+a":
			m.newAdmin = !m.newAdmin
			return m, nil
		case "enter":
			role := "user"
			if m.newAdmin {
				role = "admin"
			}
			createCmd := func() tea.Cmd {
				username := m.newUsername.Value()
				email := m.newEmail.Value()
				password := m.newPassword.Value()
				return func() tea.Msg {
					if _, err := m.client.CreateUser(username, email, password, role); err != nil {
						return errMsg(err.Error())
					}
					return okMsg{}
				}
			}()
			m.st = stateUsers
			return m, tea.Batch(createCmd, refreshUsersCmd(m.client))
		}
	}

	// Focus order: username -> email -> password
	var cmd tea.Cmd
	if m.newUsername.Focused() {
		m.newUsername, cmd = m.newUsername.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newUsername.Blur()
			m.newEmail.Focus()
		}
		return m, cmd
	}
	if m.newEmail.Focused() {
		m.newEmail, cmd = m.newEmail.Update(msg)
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "tab" {
			m.newEmail.Blur()
			m.newPassword.Focus()
		}
		return m, cmd
	}
	m.newPassword, cmd = m.newPassword.Update(msg)
	return m, cmd
}

// updateEditUser handles input while editing a user.
func (m Model) updateEditUser(msg tea.Msg) (tea.Model, tea.Cmd) {
	u, ok := m.selectedUser()
	if !ok {
		m.st = stateUsers
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, refreshUsersCmd(m.client)
		case "alt+a":
			m.edAdmin = !m.edAdmin
			return m, nil
		case "alt+e":
			m.edActive = !m.edActive
			return m, nil
		case "enter":
			role := "user"
			if m.edAdmin {
				role = "admin"
			}
			saveCmd := func() tea.Cmd {
				email := m.edEmail.Value()
				active := m.edActive
				return func() tea.Msg {
					if err := m.client.UpdateUser(u.ID, email, role, active); err != nil {
						return errMsg(err.Error())
					}
					return okMsg{}
				}
			}()
			m.st = stateUsers
			return m, tea.Batch(saveCmd, refreshUsersCmd(m.client))
		}
	}
	var cmd tea.Cmd
	m.edEmail, cmd = m.edEmail.Update(msg)
	return m, cmd
}

// updateSetPassword handles input while setting a user password.
func (m Model) updateSetPassword(msg tea.Msg) (tea.Model, tea.Cmd) {
	u, ok := m.selectedUser()
	if !ok {
		m.st = stateUsers
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateUsers
			return m, nil
		case "enter":
			pw := m.setPw.Value()
			m.setPw.SetValue("")
			saveCmd := func() tea.Msg {
				if err := m.client.SetUserPassword(u.ID, pw); err != nil {
					return errMsg(err.Error())
				}
				return okMsg{}
			}
			m.st = stateUsers
			return m, saveCmd
		}
	}
	var cmd tea.Cmd
	m.setPw, cmd = m.setPw.Update(msg)
	return m, cmd
}

func redactAddr(addr string) string {
	u, err := url.Parse(addr)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.Scheme + "://" + u.Host
}

// RequireInsecureByDefault reports whether the address points at a loopback
// host, where a self-signed certificate is expected.
func RequireInsecureByDefault(addr string) bool {
	u, err := url.Parse(addr)
	if err != nil {
		return true
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
