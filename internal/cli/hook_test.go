package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var alertHook = hookOptions{FailOn: "alert", Format: "text"}

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript(alertHook)

	if !strings.Contains(script, hookMarkerStart) {
		t.Error("Script missing start marker")
	}
	if !strings.Contains(script, hookMarkerEnd) {
		t.Error("Script missing end marker")
	}
	if !strings.Contains(script, "cardmark diff staged --fail-on alert --format text\n") {
		t.Error("Script missing cardmark command with correct flags")
	}
	if !strings.Contains(script, "CARDMARK_EXIT=$?") {
		t.Error("Script missing exit code capture")
	}
	if !strings.Contains(script, "exit 1") {
		t.Error("Script missing exit 1 for findings")
	}
	if !strings.Contains(script, "staged lines contain alert-tier card numbers, commit blocked") {
		t.Errorf("Script should name the blocking tier:\n%s", script)
	}
	if !strings.Contains(script, "commit not checked for card numbers") {
		t.Error("Script missing warning for scan errors")
	}
}

func TestGenerateHookScript_NoticeTierImpliesNotices(t *testing.T) {
	script := generateHookScript(hookOptions{FailOn: "notice", Format: "json"})

	if !strings.Contains(script, "cardmark diff staged --fail-on notice --format json --notices\n") {
		t.Errorf("notice blocking should pass --notices:\n%s", script)
	}
	if !strings.Contains(script, "notice- or alert-tier card numbers, commit blocked") {
		t.Errorf("Script should name both blocking tiers:\n%s", script)
	}
}

func TestGenerateHookScript_Notices(t *testing.T) {
	script := generateHookScript(hookOptions{FailOn: "alert", Format: "sarif", Notices: true})

	if !strings.Contains(script, "--fail-on alert --format sarif --notices") {
		t.Errorf("Script doesn't pass the configured flags:\n%s", script)
	}
	if strings.Contains(script, "notice- or alert-tier") {
		t.Error("reporting notices must not change the blocking tier")
	}
}

func TestHookOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    hookOptions
		wantErr bool
	}{
		{"alert", alertHook, false},
		{"notice", hookOptions{FailOn: "notice", Format: "markdown"}, false},
		{"never blocks", hookOptions{FailOn: "none", Format: "text"}, true},
		{"bad format", hookOptions{FailOn: "alert", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestHookInstall_RejectsNonBlockingTier(t *testing.T) {
	_, err := execute(t, "", "hook", "install", "--fail-on", "none")
	if err == nil {
		t.Fatal("expected error for --fail-on none")
	}
	if !strings.Contains(err.Error(), "alert or notice") {
		t.Errorf("error = %v, want it to list the blocking tiers", err)
	}
}

func TestInstallAndUninstallHook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks", "pre-commit")

	if err := installHook(path, generateHookScript(alertHook)); err != nil {
		t.Fatalf("installHook error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh\n"+hookMarkerStart) {
		t.Errorf("new hook should start with a shebang and the section, got %q", data)
	}

	// Reinstalling replaces the section instead of appending a second one.
	if err := installHook(path, generateHookScript(hookOptions{FailOn: "notice", Format: "text"})); err != nil {
		t.Fatalf("installHook error: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.Count(string(data), hookMarkerStart) != 1 || !strings.Contains(string(data), "--fail-on notice") {
		t.Errorf("reinstall should leave one updated section, got %q", data)
	}

	removed, err := uninstallHook(path)
	if err != nil {
		t.Fatalf("uninstallHook error: %v", err)
	}
	if removed != hookFileRemoved {
		t.Errorf("removed = %v, want hookFileRemoved", removed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("hook file should be deleted, stat err = %v", err)
	}

	removed, err = uninstallHook(path)
	if err != nil || removed != hookNotFound {
		t.Errorf("uninstall of missing hook = %v, %v; want hookNotFound, nil", removed, err)
	}
}

func TestUninstallHook_KeepsOtherHooks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pre-commit")
	other := "#!/bin/sh\nmake lint\n"
	if err := os.WriteFile(path, []byte(other), 0o755); err != nil {
		t.Fatal(err)
	}

	removed, err := uninstallHook(path)
	if err != nil || removed != hookNotFound {
		t.Fatalf("uninstall without section = %v, %v; want hookNotFound, nil", removed, err)
	}

	if err := installHook(path, generateHookScript(alertHook)); err != nil {
		t.Fatal(err)
	}
	removed, err = uninstallHook(path)
	if err != nil || removed != hookSectionRemoved {
		t.Fatalf("uninstall = %v, %v; want hookSectionRemoved, nil", removed, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != other {
		t.Errorf("remaining hook = %q, want %q", data, other)
	}
}

func TestReplaceHookSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript(alertHook)

	result := replaceHookSection(existing, section)

	if !strings.HasPrefix(result, "#!/bin/sh\nsome-other-hook\n") {
		t.Error("Existing content should be preserved")
	}
	if !strings.Contains(result, hookMarkerStart) {
		t.Error("New section should be appended")
	}
}

func TestReplaceHookSection_ExistingSection(t *testing.T) {
	oldSection := generateHookScript(hookOptions{FailOn: "notice", Format: "text"})
	existing := "#!/bin/sh\nbefore\n" + oldSection + "after\n"
	newSection := generateHookScript(hookOptions{FailOn: "alert", Format: "json"})

	result := replaceHookSection(existing, newSection)

	if !strings.Contains(result, "before") {
		t.Error("Content before cardmark section should be preserved")
	}
	if !strings.Contains(result, "after") {
		t.Error("Content after cardmark section should be preserved")
	}
	if !strings.Contains(result, "--fail-on alert") {
		t.Error("New section should have updated flags")
	}
	if strings.Contains(result, "--fail-on notice") {
		t.Error("Old section should be replaced")
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("Section should appear exactly once")
	}
}

func TestRemoveHookSection(t *testing.T) {
	section := generateHookScript(alertHook)
	existing := "#!/bin/sh\nbefore\n" + section + "after\n"

	result := removeHookSection(existing)

	if strings.Contains(result, hookMarkerStart) {
		t.Error("cardmark section should be removed")
	}
	if result != "#!/bin/sh\nbefore\nafter\n" {
		t.Errorf("result = %q", result)
	}
}

func TestRemoveHookSection_NoSection(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook\n"
	result := removeHookSection(existing)
	if result != existing {
		t.Error("Content without cardmark section should be unchanged")
	}
}

func TestReplaceHookSection_NoTrailingNewline(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook"
	section := generateHookScript(alertHook)

	result := replaceHookSection(existing, section)

	if !strings.HasPrefix(result, "#!/bin/sh\nsome-hook\n"+hookMarkerStart) {
		t.Errorf("Section should be appended on a new line, got %q", result)
	}
}
