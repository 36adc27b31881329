package naming

import (
	"errors"
	"fmt"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Location", "Location"},
		{"Location Name", "LocationName"},
		{"(Date) Created", "DateCreated"},
		{"Sales Overview", "SalesOverview"},
		{"# of Orders", "OfOrders"},
		{"order_line-item", "OrderLineItem"},
		{"customerID", "CustomerId"},
		{"XMLParser", "XmlParser"},
		{"2020 Revenue", "_2020Revenue"},
		{"Café Crème", "CafeCreme"},
		{"", Placeholder},
		{"   ", Placeholder},
		{"???", Placeholder},
		{"日本", Placeholder},
		{"Date", "Date_"},
		{"object", "Object_"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Sanitize(tt.title)
			if got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.title, got, tt.want)
			}
			if !IsIdentifier(got) {
				t.Fatalf("Sanitize(%q) = %q is not an identifier", tt.title, got)
			}
		})
	}
}

func TestExportedName(t *testing.T) {
	tests := []struct {
		ident string
		want  string
	}{
		{"Location", "Location"},
		{"_2019Sales", "X2019Sales"},
		{"location", "Location"},
		{"__x", "X"},
		{"_", "X"},
		{"Default_", "Default_"},
	}
	for _, tt := range tests {
		if got := ExportedName(tt.ident); got != tt.want {
			t.Errorf("ExportedName(%q) = %q, want %q", tt.ident, got, tt.want)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	valid := []string{"a", "_", "_1", "Abc_12", "X"}
	invalid := []string{"", "1a", "a-b", "a b", "é"}
	for _, s := range valid {
		if !IsIdentifier(s) {
			t.Errorf("IsIdentifier(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsIdentifier(s) {
			t.Errorf("IsIdentifier(%q) = true, want false", s)
		}
	}
}

func TestScopeAllocateUnique(t *testing.T) {
	titles := []string{
		"Sales Overview", "Sales Overview", "sales overview", "Sales-Overview",
		"SalesOverview_2", "", "", "1", "1", "Revenue", "Revenue 2", "Revenue_2",
		"Date", "Date", "(Date) Created",
	}
	scope := NewScope()
	seen := make(map[string]string)
	for _, title := range titles {
		got, err := scope.Allocate(title)
		if err != nil {
			t.Fatalf("Allocate(%q) error = %v", title, err)
		}
		if !IsIdentifier(got) {
			t.Fatalf("Allocate(%q) = %q is not an identifier", title, got)
		}
		if prev, dup := seen[got]; dup {
			t.Fatalf("Allocate(%q) = %q, already returned for %q", title, got, prev)
		}
		if !scope.Taken(got) {
			t.Fatalf("Allocate(%q) did not record %q", title, got)
		}
		seen[got] = title
	}
	if scope.Len() != len(titles) {
		t.Fatalf("Len() = %d, want %d", scope.Len(), len(titles))
	}
}

func TestScopeSuffixes(t *testing.T) {
	scope := NewScope()
	want := []string{"SalesOverview", "SalesOverview_2", "SalesOverview_3"}
	for i, w := range want {
		got, err := scope.Allocate("Sales Overview")
		if err != nil {
			t.Fatalf("Allocate() #%d error = %v", i, err)
		}
		if got != w {
			t.Fatalf("Allocate() #%d = %q, want %q", i, got, w)
		}
	}
}

func TestScopeReserved(t *testing.T) {
	scope := NewScope("Insights")
	got, err := scope.Allocate("Insights")
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got != "Insights_2" {
		t.Fatalf("Allocate() = %q, want %q", got, "Insights_2")
	}
}

func TestScopeExhausted(t *testing.T) {
	scope := NewScope().WithLimit(3)
	for i := 0; i < 4; i++ {
		if _, err := scope.Allocate("Revenue"); err != nil {
			t.Fatalf("Allocate() #%d error = %v", i, err)
		}
	}
	_, err := scope.Allocate("Revenue")
	if !errors.Is(err, ErrScopeExhausted) {
		t.Fatalf("Allocate() error = %v, want ErrScopeExhausted", err)
	}
}

func TestScopesAreIndependent(t *testing.T) {
	global := NewScope()
	local := NewScope()
	a, _ := global.Allocate("Name")
	b, _ := local.Allocate("Name")
	if a != b {
		t.Fatalf("independent scopes disagree: %q vs %q", a, b)
	}
}

func TestDateDataSetStrategy(t *testing.T) {
	scope := NewScope()
	attr, err := DateDataSetStrategy.Attribute("Created (Date)", scope)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}
	if want := Sanitize("(Date) Created"); attr != want {
		t.Fatalf("Attribute() = %q, want %q", attr, want)
	}

	df, err := DateDataSetStrategy.DisplayForm("Created (Year/Quarter/Month) (Date)", NewScope())
	if err != nil {
		t.Fatalf("DisplayForm() error = %v", err)
	}
	if want := Sanitize("Created"); df != want {
		t.Fatalf("DisplayForm() = %q, want %q", df, want)
	}
}

func TestTitleRewrites(t *testing.T) {
	tests := []struct {
		fn    func(string) string
		name  string
		title string
		want  string
	}{
		{SwapDataSetSuffix, "swap", "Created (Date)", "(Date) Created "},
		{SwapDataSetSuffix, "swap nested", "Day (Mon) (Date)", "(Date) Day (Mon) "},
		{SwapDataSetSuffix, "swap none", "Created", "Created"},
		{StripDisplayFormMeta, "strip", "Created (Year/Quarter/Month) (Date)", "Created "},
		{StripDisplayFormMeta, "strip none", "Created", "Created"},
		{StripDisplayFormMeta, "strip leading", "(Date)", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.title); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectDateStrategy(t *testing.T) {
	scope := NewScope()
	name, err := SelectDateStrategy(true).Attribute("Created (Date)", scope)
	if err != nil {
		t.Fatal(err)
	}
	if name != "CreatedDate" {
		t.Fatalf("tiger naming = %q, want %q", name, "CreatedDate")
	}
	name, err = SelectDateStrategy(false).Attribute("Created (Date)", scope)
	if err != nil {
		t.Fatal(err)
	}
	if name != "DateCreated" {
		t.Fatalf("date data set naming = %q, want %q", name, "DateCreated")
	}
}

func ExampleScope_Allocate() {
	scope := NewScope()
	for _, title := range []string{"Sales Overview", "Sales Overview", "2020 Revenue"} {
		name, _ := scope.Allocate(title)
		fmt.Println(name)
	}
	// Output:
	// SalesOverview
	// SalesOverview_2
	// _2020Revenue
}
