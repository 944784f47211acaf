package enums

// NoticeVariant styles a user-facing notice.
type NoticeVariant string

const (
	NoticeVariantDefault     NoticeVariant = "default"
	NoticeVariantDestructive NoticeVariant = "destructive"
)

// String implements fmt.Stringer.
func (n NoticeVariant) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NoticeVariant.
func (n NoticeVariant) IsValid() bool {
	return n == NoticeVariantDefault || n == NoticeVariantDestructive
}
